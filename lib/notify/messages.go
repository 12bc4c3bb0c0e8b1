package notify

import (
	"fmt"
	"strings"
)

// KeyDelivery builds the receipt mail sent after a completed purchase.
// downloadURL may be empty, in which case the download paragraph is omitted.
func KeyDelivery(to, product, licenseKey, downloadURL string) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Thank you for purchasing %s!\n\n", product)
	fmt.Fprintf(&b, "Your license key:\n\n    %s\n\n", licenseKey)
	if downloadURL != "" {
		fmt.Fprintf(&b, "Download: %s\n\n", downloadURL)
	}
	b.WriteString("Keep this mail, the key above is required for activation.\n")

	return Message{
		To:      to,
		Subject: fmt.Sprintf("Your %s license key", product),
		Body:    b.String(),
	}
}

// KeyReplacement builds the mail sent when a deactivated key is swapped for
// a fresh one.
func KeyReplacement(to, product, licenseKey string) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Your previous %s license key has been deactivated.\n\n", product)
	fmt.Fprintf(&b, "Your replacement key:\n\n    %s\n\n", licenseKey)
	b.WriteString("The old key no longer activates. Use the key above instead.\n")

	return Message{
		To:      to,
		Subject: fmt.Sprintf("Your replacement %s license key", product),
		Body:    b.String(),
	}
}

// KeyReport builds the operator summary mail listing every issued key and
// the purchase it belongs to.
func KeyReport(to string, lines []string) Message {
	body := "Issued license keys:\n\n" + strings.Join(lines, "\n") + "\n"
	if len(lines) == 0 {
		body = "No license keys issued yet.\n"
	}
	return Message{
		To:      to,
		Subject: fmt.Sprintf("License key report (%d issued)", len(lines)),
		Body:    body,
	}
}
