package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AlexZinkM/credlink/internal/common"
	"github.com/AlexZinkM/credlink/internal/config"
	"github.com/AlexZinkM/credlink/internal/crypto"
	"github.com/AlexZinkM/credlink/internal/ndef"
	"github.com/AlexZinkM/credlink/scanflow"

	"github.com/spf13/pflag"
)

// runLinkCode prints the link code of an endpoint and writes its QR code
func runLinkCode(args []string) error {
	flags := pflag.NewFlagSet("linkcode", pflag.ExitOnError)
	var (
		ip     string
		port   int
		scheme string
		out    string
	)
	flags.StringVar(&ip, "ip", "", "IPv4 address of the node (default: first non-loopback address)")
	flags.IntVar(&port, "port", 5000, "receiver port")
	flags.StringVar(&scheme, "scheme", "http", "http or https")
	flags.StringVarP(&out, "out", "o", "", "write the QR code to this .png file")
	flags.Parse(args)

	if ip == "" {
		var err error
		if ip, err = scanflow.LocalIPv4(); err != nil {
			return err
		}
	}
	endpoint, err := scanflow.EndpointURL(scheme, ip, port)
	if err != nil {
		return err
	}
	lc, err := scanflow.GenerateLinkCode(endpoint)
	if err != nil {
		return err
	}

	fmt.Printf("Endpoint:  %s\nLink code: %s\n", lc.Endpoint, lc.Code)
	if out != "" {
		return scanflow.WriteLinkCodePNG(endpoint, out)
	}
	return nil
}

// runTag handles 'tag encode'
func runTag(args []string) error {
	if len(args) < 1 || args[0] != "encode" {
		return errors.New("usage: credlink tag encode [flags]")
	}

	flags := pflag.NewFlagSet("tag encode", pflag.ExitOnError)
	var (
		fromFile string
		lang     string
		utf16    bool
		out      string
		asHex    bool
	)
	flags.StringVar(&fromFile, "from-file", "", "read the credentials object from file instead of stdin")
	flags.StringVar(&lang, "lang", "en", "language code of the Text record")
	flags.BoolVar(&utf16, "utf16", false, "encode the text as UTF-16")
	flags.StringVarP(&out, "out", "o", "", "write the NDEF message to this file instead of stdout")
	flags.BoolVar(&asHex, "hex", false, "write a hex dump instead of raw bytes")
	flags.Parse(args[1:])

	var (
		data []byte
		err  error
	)
	if fromFile != "" {
		data, err = os.ReadFile(fromFile)
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return fmt.Errorf("failed to read credentials: %w", err)
	}
	defer clear(data)

	text := strings.TrimSpace(string(common.StripBOM(data)))
	if !common.IsValidCredentials(text) {
		return errors.New(scanflow.NoticeInvalidCredentials)
	}

	rec, err := ndef.NewTextRecord(text, lang, utf16)
	if err != nil {
		return err
	}
	raw, err := ndef.Message{Records: []ndef.Record{rec}}.MarshalBinary()
	if err != nil {
		return err
	}
	if asHex {
		raw = []byte(hex.EncodeToString(raw) + "\n")
	}

	if out == "" {
		_, err = os.Stdout.Write(raw)
		return err
	}
	return os.WriteFile(out, raw, 0600)
}

// runVault handles 'vault show'
func runVault(args []string) error {
	if len(args) < 1 || args[0] != "show" {
		return errors.New("usage: credlink vault show [flags]")
	}

	flags := pflag.NewFlagSet("vault show", pflag.ExitOnError)
	var (
		path   string
		reveal bool
	)
	flags.StringVar(&path, "path", os.Getenv("VAULT_PATH"), "sealed credentials file")
	flags.BoolVar(&reveal, "reveal", false, "also print the private key")
	flags.Parse(args[1:])

	if path == "" {
		flags.Usage()
		return errors.New("--path or VAULT_PATH is required")
	}

	if err := config.PromptForPassword(); err != nil {
		return err
	}
	password, err := config.GetVaultPasswordBytes()
	if err != nil {
		return err
	}
	defer clear(password)

	vault, creds, err := crypto.OpenCredentials(path, password)
	if err != nil {
		return err
	}

	fmt.Printf("Elector:    %s\nSealed at:  %s\nPublic key: %s\n", vault.ElectorID, vault.SealedAt.Format("2006-01-02 15:04:05 MST"), creds.PublicKey)
	if reveal {
		fmt.Printf("Private key: %s\n", creds.PrivateKey)
	}
	return nil
}

// runFingerprint prints the link code of its argument
func runFingerprint(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: credlink fingerprint <text>")
	}
	code, err := common.Fingerprint(args[0])
	if err != nil {
		return err
	}
	fmt.Println(code)
	return nil
}

// runValidate checks an endpoint or credentials payload
func runValidate(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: credlink validate endpoint|credentials <value>")
	}

	var ok bool
	switch args[0] {
	case "endpoint":
		ok = common.IsValidEndpoint(args[1])
	case "credentials":
		ok = common.IsValidCredentials(args[1])
	default:
		return fmt.Errorf("unknown kind %q: use endpoint or credentials", args[0])
	}

	if !ok {
		return fmt.Errorf("invalid %s", args[0])
	}
	fmt.Println("valid")
	return nil
}
