// File: cmd/status.go
package cmd

import (
	"fmt"
	"time"

	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-wd/internal/network"
	"github.com/xkilldash9x/scalpel-wd/internal/observability"
)

const portPollInterval = 100 * time.Millisecond

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Wait for the WebDriver server and print its status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := configFromContext(ctx)
			if err != nil {
				return err
			}
			logger := observability.GetLogger()
			server := cfg.Server()

			clientCfg, err := cfg.Network().ClientConfig(logger)
			if err != nil {
				return err
			}
			if err := network.WaitForPort(ctx, server.Address(), server.ReadyTimeout, portPollInterval, clientCfg.Dialer); err != nil {
				return fmt.Errorf("server at %s is not reachable: %w", server.Address(), err)
			}
			logger.Debug("Server port is open", zap.String("address", server.Address()))

			sess, _, err := newSession(cfg)
			if err != nil {
				return err
			}
			status, err := sess.Status(ctx)
			if err != nil {
				return fmt.Errorf("status request failed: %w", err)
			}

			out, err := json.MarshalIndent(status, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
}
