// File: cmd/keys.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/scalpel-wd/pkg/webdriver"
)

func newKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List the @Token names accepted by send-keys input",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, tok := range webdriver.KeyTokens() {
				if _, err := fmt.Fprintf(out, "@%-10s U+%04X\n", tok.Name, tok.Code); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
