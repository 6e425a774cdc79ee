// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ids

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// NewRoomID creates a short, URL-friendly room id.
// 8 random bytes encoded as base62 (at most 11 chars).
func NewRoomID() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate room ID: %w", err)
	}
	return base62Encode(b), nil
}

// NewPredictionID returns a fresh prediction id, unique within any room.
func NewPredictionID() string {
	return uuid.NewString()
}

// commentIDBytes keeps comment ids at 24 hex chars.
const commentIDBytes = 12

// NewCommentID returns a fresh comment id as random hex.
func NewCommentID() (string, error) {
	id, err := GenerateID(commentIDBytes)
	if err != nil {
		return "", fmt.Errorf("failed to generate comment ID: %w", err)
	}
	return id, nil
}

// base62Encode converts bytes to base62 (0-9, a-z, A-Z)
// This creates URL-friendly ids without special characters
func base62Encode(data []byte) string {
	const base62Chars = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// Convert bytes to a big integer
	var num uint64
	for i := 0; i < len(data) && i < 8; i++ {
		num = num<<8 | uint64(data[i])
	}

	if num == 0 {
		return "0"
	}

	result := make([]byte, 0, 11) // max length for uint64
	for num > 0 {
		result = append(result, base62Chars[num%62])
		num /= 62
	}

	// Reverse the string
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}

	return string(result)
}
