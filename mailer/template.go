package mailer

import (
	"bytes"
	"html/template"
)

var verificationTemplate = template.Must(template.New("verification").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <style>
    body { font-family: 'Arial', sans-serif; background-color: #f4f4f4; color: #333; margin: 0; padding: 0; }
    .email-container { max-width: 600px; margin: 20px auto; background-color: #ffffff; padding: 20px; border: 1px solid #ddd; border-radius: 8px; }
    .header { text-align: center; font-size: 24px; margin-bottom: 20px; }
    .otp { display: inline-block; font-size: 1.5rem; font-weight: bold; color: #ffffff; background-color: #007bff; padding: 10px 20px; margin: 20px 0; border-radius: 4px; }
    .footer { text-align: center; font-size: 0.9rem; color: #888; margin-top: 20px; }
  </style>
</head>
<body>
  <div class="email-container">
    <h2 class="header">Your Verification Code</h2>
    <p>Hi there, Greetings from {{.Brand}}</p>
    <p>Thank you for signing up! Use the following OTP to complete your verification:</p>
    <div class="otp">{{.Code}}</div>
    <p>If you did not request this, please ignore this email.</p>
    <div class="footer">&copy; {{.Year}} {{.Brand}}. All rights reserved.</div>
  </div>
</body>
</html>
`))

type templateData struct {
	Brand string
	Code  string
	Year  int
}

func renderVerification(data templateData) ([]byte, error) {
	var buf bytes.Buffer
	if err := verificationTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
