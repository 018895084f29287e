package cmd

import (
	"fmt"

	"github.com/nfrund/chatrooms/internal/config"
	"github.com/nfrund/chatrooms/internal/roomseed"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "Print the rooms seeded at startup",
	Long: `Print DEFAULT_ROOMS followed by any extra rooms listed in ROOMS_FILE, in
the order the server would create them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return err
		}

		names := cfg.GetDefaultRooms()
		if path := cfg.GetRoomsFile(); path != "" {
			extra, err := roomseed.Load(afero.NewOsFs(), path)
			if err != nil {
				return fmt.Errorf("read rooms file: %w", err)
			}
			names = roomseed.Merge(names, extra)
		}

		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(roomsCmd)
}
