package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "agendacache",
		Short: "Offline-capable conference agenda cache with background revalidation",
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	root.AddCommand(syncCmd())
	root.AddCommand(agendaCmd())
	root.AddCommand(speakersCmd())
	root.AddCommand(favoritesCmd())
	root.AddCommand(clearCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(runCmd())

	return root
}

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Revalidate the cache against the configured agenda source",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync()
		},
	}
}

func agendaCmd() *cobra.Command {
	var (
		jsonOutput bool
		day        string
		track      string
		talkType   string
		room       string
	)

	cmd := &cobra.Command{
		Use:   "agenda",
		Short: "List the cached agenda",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgenda(jsonOutput, day, track, talkType, room)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().StringVar(&day, "day", "", "filter by day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&track, "track", "", "filter by track")
	cmd.Flags().StringVar(&talkType, "type", "", "filter by type (keynote, talk, workshop)")
	cmd.Flags().StringVar(&room, "room", "", "filter by room")
	return cmd
}

func speakersCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "speakers",
		Short: "List cached speakers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSpeakers(name)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "filter by name substring")
	return cmd
}

func favoritesCmd() *cobra.Command {
	var toggle string

	cmd := &cobra.Command{
		Use:   "favorites",
		Short: "List favorited talks and their schedule conflicts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFavorites(toggle)
		},
	}

	cmd.Flags().StringVar(&toggle, "toggle", "", "toggle the favorite state of a talk (id or slug)")
	return cmd
}

func clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Hard-reset the cache (talks, speakers, favorites, reminders)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClear()
		},
	}
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP read API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func runCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start daemon with scheduled revalidation, reminders and HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}
