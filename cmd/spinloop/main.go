// Command spinloop runs the now-playing poller: station monitors, the
// pending worker, the playlist reconciler and the one-shot Spotify
// authorise flow, wired through a cobra command tree the way
// toozej-kmhd2spotify's cmd package structures its sync/auth subcommands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "spinloop",
		Short: "Polls internet radio now-playing streams and republishes top-played Spotify playlists",
	}

	var stationsPath string
	root.PersistentFlags().StringVar(&stationsPath, "config", "stations.yaml", "path to the stations YAML config")
	var debug bool
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newMonitorCmd(&stationsPath, &debug),
		newUpdatePlaylistsCmd(&stationsPath, &debug),
		newAuthoriseCmd(&stationsPath, &debug),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
