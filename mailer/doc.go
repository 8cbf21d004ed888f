// Package mailer delivers verification codes.
//
// SMTP sends the HTML verification mail over net/smtp, using implicit TLS on
// port 465 and STARTTLS otherwise. LogMailer writes the code to a zerolog
// logger instead and is meant for local development.
package mailer
