// Package qr renders pairing payloads as scannable images.
package qr

import (
	"encoding/base64"
	"errors"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const (
	DefaultSize   = 256
	dataURLPrefix = "data:image/png;base64,"
)

var ErrEmptyPayload = errors.New("qr payload is empty")

// RenderPNG encodes payload as a size x size PNG with medium error correction.
func RenderPNG(payload string, size int) ([]byte, error) {
	if payload == "" {
		return nil, ErrEmptyPayload
	}
	if size <= 0 {
		size = DefaultSize
	}

	png, err := qrcode.Encode(payload, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

// RenderDataURL returns payload as an inline PNG data URL suitable for an <img> src.
func RenderDataURL(payload string) (string, error) {
	png, err := RenderPNG(payload, DefaultSize)
	if err != nil {
		return "", err
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(png), nil
}

// Terminal renders payload with half-block characters for console output.
func Terminal(payload string) (string, error) {
	if payload == "" {
		return "", ErrEmptyPayload
	}
	code, err := qrcode.New(payload, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("encode qr: %w", err)
	}
	return code.ToSmallString(false), nil
}
