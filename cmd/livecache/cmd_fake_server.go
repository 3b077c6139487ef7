package main

import (
	"github.com/spf13/cobra"

	"github.com/junaikey/livecache/internal/codec"
	"github.com/junaikey/livecache/internal/fakefeed"
	"github.com/junaikey/livecache/pkg/config"
)

func fakeServerCmd() *cobra.Command {
	var (
		addr      string
		codecName string
		seed      bool
		logLevel  string
	)

	cmd := &cobra.Command{
		Use:   "fake-server",
		Short: "Run an in-memory entity service with a live change feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := codec.ByName(codecName)
			if err != nil {
				return err
			}
			log, closeLog, err := newLogger(config.LoggingConfig{Level: logLevel, Format: "json"})
			if err != nil {
				return err
			}
			defer closeLog()

			server := fakefeed.NewServer(addr, fakefeed.WithCodec(c), fakefeed.WithLogger(log))
			if seed {
				server.SampleData()
			}
			if err := server.Start(); err != nil {
				return err
			}
			cmd.Printf("serving %s\n", server.URL())

			<-cmd.Context().Done()
			log.Info("Shutting down")
			return server.Stop()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8765", "listen address")
	cmd.Flags().StringVar(&codecName, "codec", codec.NameCBOR, "wire codec: cbor or json")
	cmd.Flags().BoolVar(&seed, "seed", true, "load sample rows for every page kind")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level")
	return cmd
}
