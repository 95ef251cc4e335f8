package utils

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// ReceiptPrefix starts every receipt number
const ReceiptPrefix = "RCP"

const receiptRandomDigits = 6

// GenerateReceiptNumber builds RCP-<unix millis>-<random digits>
func GenerateReceiptNumber(now time.Time) (string, error) {
	digits := make([]byte, receiptRandomDigits)
	if _, err := rand.Read(digits); err != nil {
		return "", fmt.Errorf("failed to generate random digits: %w", err)
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("%s-%d-", ReceiptPrefix, now.UnixMilli()))
	for _, b := range digits {
		builder.WriteByte(b%10 + '0')
	}
	return builder.String(), nil
}

// SignReceipt generates an HMAC over the receipt's identifying fields
func SignReceipt(receiptNumber, studentID, totalAmount, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(receiptNumber + "|" + studentID + "|" + totalAmount))
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyReceipt checks a signature produced by SignReceipt
func VerifyReceipt(signature, receiptNumber, studentID, totalAmount, secret string) bool {
	expected := SignReceipt(receiptNumber, studentID, totalAmount, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
