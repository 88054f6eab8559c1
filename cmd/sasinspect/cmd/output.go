package cmd

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/segmentio/ksuid"

	"github.com/ssargent/sasinspect/pkg/codec"
	"github.com/ssargent/sasinspect/pkg/inspect"
	"github.com/ssargent/sasinspect/pkg/scan"
)

// outputReport displays a single report
func outputReport(w io.Writer, format string, report *inspect.Report) error {
	if format == "json" {
		return outputJSON(w, report)
	}
	return outputReportTable(w, report)
}

// outputReports displays multiple reports separated by a blank line
func outputReports(w io.Writer, format string, reports []*inspect.Report) error {
	if format == "json" {
		return outputJSON(w, reports)
	}
	for i, r := range reports {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if err := outputReportTable(w, r); err != nil {
			return err
		}
	}
	return nil
}

// outputReportTable displays a report and its record in table format
func outputReportTable(out io.Writer, report *inspect.Report) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	if report.Stored() {
		fmt.Fprintf(w, "Report:\t%s\n", report.ID)
	}
	if report.Address != nil {
		fmt.Fprintf(w, "Address:\t%s\n", report.Address)
	}
	if report.Owner != nil {
		fmt.Fprintf(w, "Owner:\t%s\n", report.Owner)
	}
	if report.Slot != 0 {
		fmt.Fprintf(w, "Slot:\t%d\n", report.Slot)
	}
	if report.Signature != "" {
		fmt.Fprintf(w, "Signature:\t%s\n", report.Signature)
	}
	fmt.Fprintf(w, "Source:\t%s\n", report.Source)
	fmt.Fprintf(w, "Kind:\t%s\n", report.Kind)

	if !report.Recognized {
		fmt.Fprintf(w, "Size:\t%d bytes\n", len(report.Data))
		return nil
	}

	switch rec := report.Record.(type) {
	case *codec.Credential:
		fmt.Fprintf(w, "Authority:\t%s\n", rec.Authority)
		fmt.Fprintf(w, "Name:\t%s\n", printable(rec.Name))
		fmt.Fprintf(w, "Signers:\t%d\n", len(rec.AuthorizedSigners))
		for _, s := range rec.AuthorizedSigners {
			fmt.Fprintf(w, "\t%s\n", s)
		}
	case *codec.Schema:
		fmt.Fprintf(w, "Credential:\t%s\n", rec.Credential)
		fmt.Fprintf(w, "Name:\t%s\n", printable(rec.Name))
		fmt.Fprintf(w, "Description:\t%s\n", printable(rec.Description))
		fmt.Fprintf(w, "Layout:\t%s\n", hex.EncodeToString([]byte(rec.Layout)))
		fmt.Fprintf(w, "Field names:\t%s\n", printable(rec.FieldNames))
		fmt.Fprintf(w, "Paused:\t%t\n", rec.IsPaused)
		fmt.Fprintf(w, "Version:\t%d\n", rec.Version)
	case *codec.Attestation:
		fmt.Fprintf(w, "Nonce:\t%s\n", rec.Nonce)
		fmt.Fprintf(w, "Credential:\t%s\n", rec.Credential)
		fmt.Fprintf(w, "Schema:\t%s\n", rec.Schema)
		fmt.Fprintf(w, "Data:\t%s\n", printable(rec.Data))
		fmt.Fprintf(w, "Signer:\t%s\n", rec.Signer)
		fmt.Fprintf(w, "Expiry:\t%s\n", formatExpiry(rec))
		fmt.Fprintf(w, "Token account:\t%s\n", rec.TokenAccount)
	default:
		return fmt.Errorf("unsupported record type %T", report.Record)
	}

	return nil
}

// outputMatches displays the createAccount instructions found in a block
func outputMatches(out io.Writer, format string, matches []scan.Match) error {
	if format == "json" {
		return outputJSON(out, matches)
	}
	if len(matches) == 0 {
		fmt.Fprintln(out, "No matching accounts found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "ADDRESS\tLAMPORTS\tSPACE\tSIGNATURE")
	for _, m := range matches {
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", m.Address, m.Lamports, m.Space, m.Signature)
	}
	return nil
}

// outputReportIDs displays stored report IDs with their creation time
func outputReportIDs(out io.Writer, format string, ids []ksuid.KSUID) error {
	if format == "json" {
		if ids == nil {
			ids = []ksuid.KSUID{}
		}
		return outputJSON(out, ids)
	}
	if len(ids) == 0 {
		fmt.Fprintln(out, "No reports found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "ID\tCREATED")
	for _, id := range ids {
		fmt.Fprintf(w, "%s\t%s\n", id, id.Time().UTC().Format("2006-01-02 15:04:05"))
	}
	return nil
}

func outputJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func formatExpiry(a *codec.Attestation) string {
	if !a.Expires() {
		return "never"
	}
	s := a.ExpiryDate.UTC().Format(time.RFC3339)
	if a.ExpiredAt(time.Now()) {
		s += " (expired)"
	}
	return s
}

// printable returns s as text when it is valid printable UTF-8, and as
// 0x-prefixed hex otherwise
func printable(s string) string {
	if !utf8.ValidString(s) {
		return "0x" + hex.EncodeToString([]byte(s))
	}
	if strings.IndexFunc(s, func(r rune) bool { return !unicode.IsPrint(r) && !unicode.IsSpace(r) }) >= 0 {
		return "0x" + hex.EncodeToString([]byte(s))
	}
	return s
}
