package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/mail"
	"regexp"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	twilio "github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	lookupsv2 "github.com/twilio/twilio-go/rest/lookups/v2"
)

// -----------------------------------------------------------------------
// 1) PHONE NUMBER VALIDATION
// -----------------------------------------------------------------------

var e164Regex = regexp.MustCompile(`^\+[1-9]\d{7,14}$`) // ITU-T E.164

var phoneNoise = regexp.MustCompile(`[\s().\-]`)

// IsE164 reports basic E.164 compliance
func IsE164(number string) bool { return e164Regex.MatchString(number) }

// NormalizePhone strips common formatting and assumes +1 for bare
// ten-digit US numbers. The result is not guaranteed to be E.164.
func NormalizePhone(raw string) string {
	n := phoneNoise.ReplaceAllString(strings.TrimSpace(raw), "")
	if n == "" {
		return ""
	}
	if !strings.HasPrefix(n, "+") {
		switch {
		case len(n) == 10:
			n = "+1" + n
		case len(n) == 11 && strings.HasPrefix(n, "1"):
			n = "+" + n
		}
	}
	return n
}

// ValidatePhoneNumber validates `number`.
//
//   - If validateWithTwilio == true *and* a non-nil Twilio RestClient is provided,
//     the function performs a Twilio Lookups V2 fetch.
//   - Otherwise only the E.164 shape is checked.
func ValidatePhoneNumber(
	ctx context.Context,
	number string,
	validateWithTwilio bool,
	tw *twilio.RestClient,
) (bool, error) {
	if !IsE164(number) {
		return false, nil
	}

	if validateWithTwilio && tw != nil {
		_, err := tw.LookupsV2.FetchPhoneNumber(number, &lookupsv2.FetchPhoneNumberParams{})
		if err == nil {
			return true, nil
		}
		if restErr, ok := err.(*twilioclient.TwilioRestError); ok {
			if restErr.Status == 404 {
				return false, nil
			}
			return false, fmt.Errorf("twilio lookup failed: %d %s", restErr.Status, restErr.Error())
		}
		return false, err
	}

	return true, nil
}

// -----------------------------------------------------------------------
// 2) EMAIL VALIDATION
// -----------------------------------------------------------------------

// MXLookup resolves MX records for a domain. Swappable in tests.
var MXLookup = func(ctx context.Context, domain string) ([]*net.MX, error) {
	return net.DefaultResolver.LookupMX(ctx, domain)
}

// IsValidEmailSyntax does RFC-5322-ish syntax only (no DNS) and rejects
// display-name forms like "Bob <bob@x.com>".
func IsValidEmailSyntax(e string) bool {
	addr, err := mail.ParseAddress(e)
	return err == nil && addr.Address == e
}

func hasMX(ctx context.Context, domain string) bool {
	mx, err := MXLookup(ctx, domain)
	return err == nil && len(mx) > 0
}

// ValidateEmail returns true if the string parses as an email, its domain
// has an MX record and, when validateWithSendGrid is set, SendGrid's
// deliverability verdict is "Valid" or "Risky".
//
// Any SendGrid/network error is returned so the caller can decide.
func ValidateEmail(ctx context.Context, apiKey string, email string, validateWithSendGrid bool) (bool, error) {
	if !IsValidEmailSyntax(email) {
		return false, nil
	}

	parts := strings.SplitN(email, "@", 2)
	if len(parts) != 2 || !hasMX(ctx, parts[1]) {
		return false, nil
	}

	if validateWithSendGrid && apiKey != "" {
		req := sendgrid.GetRequest(apiKey, "/v3/validations/email", "https://api.sendgrid.com")
		req.Method = "POST"
		body, _ := json.Marshal(map[string]string{"email": email})
		req.Body = body

		resp, err := sendgrid.API(req)
		if err != nil {
			return false, err
		}

		switch resp.StatusCode {
		case 200:
			var sg struct {
				Result struct {
					Verdict string `json:"verdict"`
				} `json:"result"`
			}
			if jsonErr := json.Unmarshal([]byte(resp.Body), &sg); jsonErr != nil {
				return false, fmt.Errorf("sendgrid JSON decode: %w", jsonErr)
			}
			verdict := strings.ToLower(sg.Result.Verdict)
			return verdict == "valid" || verdict == "risky", nil

		case 400: // SendGrid treats syntactically bad addresses as 400
			return false, nil
		default:
			return false, fmt.Errorf("sendgrid validation failed: status %d: %s", resp.StatusCode, resp.Body)
		}
	}

	return true, nil
}
