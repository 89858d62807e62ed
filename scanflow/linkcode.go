package scanflow

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strconv"

	"github.com/AlexZinkM/credlink/internal/common"
	"github.com/AlexZinkM/credlink/internal/model"

	"github.com/skip2/go-qrcode"
)

const (
	qrSize      = 256
	credsPath   = "/credentials"
	qrExtension = ".png"
)

// EndpointURL builds the credentials endpoint a node advertises
func EndpointURL(scheme, ip string, port int) (string, error) {
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", scheme)
	}
	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.To4() == nil {
		return "", fmt.Errorf("%q is not an IPv4 address", ip)
	}
	if port < 1 || port > 65535 {
		return "", fmt.Errorf("port %d out of range", port)
	}

	endpoint := scheme + "://" + parsed.To4().String() + ":" + strconv.Itoa(port) + credsPath
	if !common.IsValidEndpoint(endpoint) {
		return "", fmt.Errorf("endpoint %s is not scannable", endpoint)
	}
	return endpoint, nil
}

// GenerateLinkCode renders endpoint as a QR code and computes the link
// code users compare after scanning it.
func GenerateLinkCode(endpoint string) (*model.LinkCode, error) {
	code, err := common.Fingerprint(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to compute link code: %w", err)
	}

	png, err := generateQRCode(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}

	return &model.LinkCode{
		Endpoint: endpoint,
		Code:     code,
		QR:       base64.StdEncoding.EncodeToString(png),
	}, nil
}

// WriteLinkCodePNG writes the endpoint QR code to a .png file
func WriteLinkCodePNG(endpoint, filePath string) error {
	if filepath.Ext(filePath) != qrExtension {
		return errors.New("file must have .png extension")
	}
	if err := qrcode.WriteFile(endpoint, qrcode.Medium, qrSize, filePath); err != nil {
		return fmt.Errorf("failed to write QR code: %w", err)
	}
	return nil
}

// generateQRCode generates a PNG QR code of text
func generateQRCode(text string) ([]byte, error) {
	qr, err := qrcode.New(text, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to create QR code: %w", err)
	}

	png, err := qr.PNG(qrSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PNG: %w", err)
	}
	return png, nil
}

// LocalIPv4 returns the first non-loopback IPv4 address of this host
func LocalIPv4() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", fmt.Errorf("failed to list interface addresses: %w", err)
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			return ip4.String(), nil
		}
	}
	return "", errors.New("no non-loopback IPv4 address found")
}
