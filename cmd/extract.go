package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/teemow/mailbridge/internal/gmail"
)

// extractResult is the JSON output of the extract command.
type extractResult struct {
	Body         gmail.Body         `json:"body"`
	Attachments  []gmail.Attachment `json:"attachments"`
	DecodeErrors []string           `json:"decodeErrors,omitempty"`
}

func newExtractCmd() *cobra.Command {
	var (
		textOnly bool
		strict   bool
	)

	cmd := &cobra.Command{
		Use:   "extract [file]",
		Short: "Decode the body and attachments of a saved Gmail message",
		Long: `Run the payload extractor over a Gmail API message or message part saved
as JSON (users.messages.get with format=full). The input is read from the
file argument, or from stdin when the argument is omitted or "-".

The result is printed as JSON: the decoded text and HTML bodies and the
attachment descriptors. With --text only the plain text body is printed,
derived from the HTML body when the message has no text part.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open input: %w", err)
				}
				defer f.Close()
				in = f
			}

			root, err := readPart(in)
			if err != nil {
				return err
			}

			body, decodeErr := gmail.ExtractBody(root)
			if decodeErr != nil {
				if strict {
					return fmt.Errorf("failed to decode message: %w", decodeErr)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", decodeErr)
			}

			if textOnly {
				text, _ := body.PlainText()
				_, err := fmt.Fprintln(cmd.OutOrStdout(), text)
				return err
			}

			res := extractResult{
				Body:         body,
				Attachments:  gmail.ExtractAttachments(root),
				DecodeErrors: errorStrings(decodeErr),
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(res)
		},
	}

	cmd.Flags().BoolVar(&textOnly, "text", false, "Print only the plain text body")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when any part cannot be decoded")

	return cmd
}

// readPart decodes either a full message, whose payload is returned, or a
// bare message part.
func readPart(r io.Reader) (*gmailapi.MessagePart, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	var msg gmailapi.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse input as JSON: %w", err)
	}
	if msg.Payload != nil {
		return msg.Payload, nil
	}

	var part gmailapi.MessagePart
	if err := json.Unmarshal(data, &part); err != nil {
		return nil, fmt.Errorf("failed to parse message part: %w", err)
	}
	if part.MimeType == "" && len(part.Parts) == 0 && part.Body == nil {
		return nil, errors.New("input is neither a Gmail message nor a message part")
	}
	return &part, nil
}

// errorStrings flattens a joined error into its messages.
func errorStrings(err error) []string {
	if err == nil {
		return nil
	}
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(joined.Unwrap()))
	for _, e := range joined.Unwrap() {
		out = append(out, e.Error())
	}
	return out
}
