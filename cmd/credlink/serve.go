package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/AlexZinkM/credlink/internal/api"
	"github.com/AlexZinkM/credlink/internal/config"
	"github.com/AlexZinkM/credlink/internal/handler"
	"github.com/AlexZinkM/credlink/internal/model"
	"github.com/AlexZinkM/credlink/scanflow"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// runServe runs the node-side receiver until interrupted
func runServe(args []string) error {
	flags := pflag.NewFlagSet("serve", pflag.ExitOnError)
	var qrOut string
	flags.StringVar(&qrOut, "qr-out", "", "also write the link code QR to this .png file")
	flags.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, qrOut)
}

// serve runs the receiver until ctx is cancelled
func serve(ctx context.Context, qrOut string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	ip := cfg.AdvertiseIP
	if ip == "" {
		ip, err = scanflow.LocalIPv4()
		if err != nil {
			return fmt.Errorf("failed to determine address to advertise (set ADVERTISE_IP): %w", err)
		}
	}

	opts := scanflow.ReceiverOptions{
		Logger: log,
		OnLoad: func(c *model.Credentials) {
			fmt.Printf("Credentials loaded for elector %s\n", c.ElectorID)
		},
	}
	if cfg.VaultPath != "" {
		if err := config.PromptForPassword(); err != nil {
			return err
		}
		opts.VaultPath = cfg.VaultPath
		opts.Password = config.GetVaultPasswordBytes
	}
	receiver, err := scanflow.NewReceiver(opts)
	if err != nil {
		return err
	}

	ln, port, err := api.Listen("", cfg.Port, cfg.PortAttempts)
	if err != nil {
		return err
	}

	endpoint, err := scanflow.EndpointURL(cfg.Scheme(), ip, port)
	if err != nil {
		ln.Close()
		return err
	}
	h, err := handler.NewCredentialsHandler(receiver, endpoint, log)
	if err != nil {
		ln.Close()
		return err
	}
	if qrOut != "" {
		if err := scanflow.WriteLinkCodePNG(endpoint, qrOut); err != nil {
			ln.Close()
			return err
		}
	}

	lc := h.LinkCode()
	log.Info("advertising endpoint", zap.String("endpoint", lc.Endpoint), zap.String("code", lc.Code))
	fmt.Printf("Endpoint:  %s\nLink code: %s\n", lc.Endpoint, lc.Code)

	server := api.NewServer(api.SetupRouter(h), ln, cfg.TLSCertFile, cfg.TLSKeyFile, log)
	return server.Run(ctx)
}
