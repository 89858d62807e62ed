package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/AlexZinkM/credlink/internal/client"
	"github.com/AlexZinkM/credlink/internal/config"
	"github.com/AlexZinkM/credlink/internal/ndef"
	"github.com/AlexZinkM/credlink/internal/scanner"
	"github.com/AlexZinkM/credlink/scanflow"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// runScan drives one hand-over from the scanning side
func runScan(args []string) error {
	flags := pflag.NewFlagSet("scan", pflag.ExitOnError)
	var (
		qrImage   string
		endpoint  string
		tagPath   string
		assumeYes bool
	)
	flags.StringVar(&qrImage, "qr-image", "", "image (PNG, JPEG, GIF) of the node's link code")
	flags.StringVar(&endpoint, "endpoint", "", "already decoded link code content, instead of --qr-image")
	flags.StringVar(&tagPath, "tag", "", "NDEF dump of the credentials tag, binary or hex; '-' reads stdin (required)")
	flags.BoolVarP(&assumeYes, "yes", "y", false, "accept the link code without asking")
	flags.Parse(args)

	if (qrImage == "") == (endpoint == "") {
		flags.Usage()
		return errors.New("exactly one of --qr-image or --endpoint is required")
	}
	if tagPath == "" {
		flags.Usage()
		return errors.New("--tag is required")
	}

	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	submitter, err := client.NewCredentialsClient(client.Options{
		Timeout:            cfg.SubmitTimeout,
		CAFile:             cfg.TLSCAFile,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		Logger:             log,
	})
	if err != nil {
		return err
	}

	flow := scanflow.New(scanflow.Options{Submitter: submitter, Logger: log})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		flow.Abandon()
	}()

	raw := endpoint
	if qrImage != "" {
		raw, err = scanner.DecodeFile(qrImage)
		if err != nil {
			if errors.Is(err, scanner.ErrSourceUnavailable) {
				return scanflow.NewUnavailableError("camera", err)
			}
			return err
		}
	}

	if err := flow.HandleScan(raw); err != nil {
		return err
	}

	fmt.Printf("Endpoint:  %s\nLink code: %s\n", flow.Endpoint(), flow.Code())
	if !assumeYes {
		ok, err := confirm("Does this code match the one shown on the node? [y/N] ")
		if err != nil {
			flow.Abandon()
			return err
		}
		if !ok {
			flow.Abandon()
			return errors.New("link code rejected")
		}
	}
	if err := flow.Confirm(); err != nil {
		return err
	}

	payload, err := readTagPayload(tagPath)
	if err != nil {
		flow.Abandon()
		return tagSourceError(err)
	}
	defer clear(payload)

	if err := flow.HandleTag(payload); err != nil {
		flow.Abandon()
		return err
	}

	submitCtx, cancel := context.WithTimeout(ctx, cfg.SubmitTimeout)
	defer cancel()

	result, err := flow.Submit(submitCtx)
	if err != nil {
		if result != nil && result.StatusCode != 0 {
			fmt.Printf("Endpoint answered %d: %s\n", result.StatusCode, result.Body)
		}
		return err
	}

	log.Info("credentials submitted", zap.String("flow_id", flow.ID()), zap.Int("status", result.StatusCode))
	fmt.Printf("Submitted. Endpoint answered %d: %s\n", result.StatusCode, result.Body)
	return nil
}

// confirm asks a yes/no question on the terminal
func confirm(question string) (bool, error) {
	if !config.IsInteractive() {
		return false, errors.New("stdin is not a terminal: pass --yes to accept the link code")
	}
	fmt.Fprint(os.Stderr, question)

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// tagSourceError classifies a failed tag read. A missing or unreadable
// dump means the reader is unavailable; anything else is bad tag data.
func tagSourceError(err error) error {
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return scanflow.NewUnavailableError("NFC reader", err)
	}
	return &scanflow.NoticeError{Kind: scanflow.KindDecoding, Message: scanflow.NoticeTagReadError, Err: err}
}

// readTagPayload returns the payload of the first record of a tag dump
func readTagPayload(path string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	raw, err := ndef.ReadDump(data)
	if err != nil {
		return nil, err
	}
	msg, err := ndef.ParseMessage(raw)
	if err != nil {
		return nil, err
	}
	rec, err := msg.First()
	if err != nil {
		return nil, err
	}
	return rec.Payload, nil
}
