package cmd

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ssargent/sasinspect/pkg/codec"
	"github.com/ssargent/sasinspect/pkg/inspect"
)

// decodeCmd represents the decode command
var decodeCmd = &cobra.Command{
	Use:   "decode [file]",
	Short: "Decode raw SAS account bytes",
	Long: `Decode the bytes of a SAS account without touching the network.

The input is read from the file argument, or from stdin when no file or "-"
is given. By default the input is taken as raw bytes; use --hex or --base64
for text encodings.

Examples:
  sasinspect decode account.bin
  sasinspect decode --base64 < account.b64
  echo 00ab... | sasinspect decode --hex --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		isHex, _ := cmd.Flags().GetBool("hex")
		isBase64, _ := cmd.Flags().GetBool("base64")
		strict, _ := cmd.Flags().GetBool("strict")

		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}

		path := "-"
		if len(args) == 1 {
			path = args[0]
		}
		raw, err := readInput(cmd.InOrStdin(), path)
		if err != nil {
			return err
		}

		data, err := decodeInput(raw, isHex, isBase64)
		if err != nil {
			return err
		}

		rc := recordCodec()
		if strict {
			rc = codec.NewRecordCodec(codec.WithStrictUTF8())
		}

		report, err := decodeReport(rc, data)
		if err != nil {
			return fmt.Errorf("decode failed: %w", err)
		}
		return outputReport(cmd.OutOrStdout(), format, report)
	},
}

func init() {
	rootCmd.AddCommand(decodeCmd)

	decodeCmd.Flags().Bool("hex", false, "Input is hex encoded")
	decodeCmd.Flags().Bool("base64", false, "Input is base64 encoded")
	decodeCmd.Flags().Bool("strict", false, "Reject string fields that are not valid UTF-8")
	decodeCmd.MarkFlagsMutuallyExclusive("hex", "base64")
}

// decodeReport decodes data offline. An unknown tag is an error here since
// the caller asked for a SAS record explicitly.
func decodeReport(rc *codec.RecordCodec, data []byte) (*inspect.Report, error) {
	in, err := inspect.New(inspect.Config{Codec: rc, Program: programID(), Logger: logger})
	if err != nil {
		return nil, err
	}

	report, err := in.Decode(data)
	if err != nil {
		return nil, err
	}
	if !report.Recognized {
		return nil, &codec.UnknownTagError{Tag: data[0]}
	}
	return report, nil
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	return data, nil
}

// decodeInput turns the text encodings into bytes; raw input is returned as is
func decodeInput(raw []byte, isHex, isBase64 bool) ([]byte, error) {
	switch {
	case isHex:
		s := strings.Join(strings.Fields(string(raw)), "")
		s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
		data, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("invalid hex input: %w", err)
		}
		return data, nil
	case isBase64:
		data, err := base64.StdEncoding.DecodeString(string(bytes.TrimSpace(raw)))
		if err != nil {
			return nil, fmt.Errorf("invalid base64 input: %w", err)
		}
		return data, nil
	default:
		return raw, nil
	}
}
