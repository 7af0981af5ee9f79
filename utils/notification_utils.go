package utils

import (
	"context"
	"fmt"
	"log"
	"time"

	"firebase.google.com/go/v4/messaging"

	"github.com/vyjcapital/vyj_backend/config"
)

// SendFCMNotification sends a Firebase Cloud Messaging push to a collector
// device. Callers fire these best-effort; a failed push never affects the
// operation that triggered it.
func SendFCMNotification(token, title, message string, data map[string]string) error {
	if token == "" {
		return fmt.Errorf("no FCM token provided")
	}

	if config.FirebaseApp == nil {
		log.Printf("Firebase app is not initialized")
		return fmt.Errorf("firebase app not initialized")
	}

	ctx := context.Background()
	client, err := config.FirebaseApp.Messaging(ctx)
	if err != nil {
		log.Printf("Error getting messaging client: %v", err)
		return fmt.Errorf("failed to initialize messaging client: %w", err)
	}

	notificationData := map[string]string{
		"timestamp": time.Now().Format(time.RFC3339),
	}
	for key, value := range data {
		notificationData[key] = value
	}

	fcmMessage := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  message,
		},
		Data: notificationData,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound:     "default",
				ChannelID: "vyj_fcm_channel",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{
						Title: title,
						Body:  message,
					},
					Sound:    "default",
					Badge:    func() *int { v := 1; return &v }(),
					Category: "LOAN_EVENT",
				},
			},
		},
	}

	response, err := client.Send(ctx, fcmMessage)
	if err != nil {
		log.Printf("Error sending FCM notification: %v", err)
		return fmt.Errorf("failed to send FCM notification: %w", err)
	}

	log.Printf("FCM notification sent: %s", response)
	return nil
}

// NotifyPaymentReceived pushes a payment confirmation to the given devices
func NotifyPaymentReceived(tokens []string, clientName string, amount, newBalance float64, receiptNo string) {
	title := "Payment received"
	message := fmt.Sprintf("%s paid $%.2f. New balance: $%.2f", clientName, amount, newBalance)
	data := map[string]string{
		"type":      "payment_received",
		"receiptNo": receiptNo,
	}
	for _, token := range tokens {
		if err := SendFCMNotification(token, title, message, data); err != nil {
			log.Printf("payment push to device failed: %v", err)
		}
	}
}

// NotifyLoansInArrears alerts collector devices after the daily sweep
func NotifyLoansInArrears(tokens []string, count int) {
	if len(tokens) == 0 || count == 0 {
		return
	}
	title := "Loans in arrears"
	message := fmt.Sprintf("%d loans were charged the daily arrears penalty", count)
	data := map[string]string{"type": "loan_arrears"}
	for _, token := range tokens {
		if err := SendFCMNotification(token, title, message, data); err != nil {
			log.Printf("arrears push to device failed: %v", err)
		}
	}
}
