// Command totp prints the codes and rotating payload a ticket would show at a
// given time. It is a debugging aid for tokens and TOTP parameters.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"secureentry/internal/clock"
	"secureentry/internal/entry"
	"secureentry/internal/rotating"
	"secureentry/internal/totp"
)

func main() {
	secret := flag.String("secret", "", "Hex-encoded secret to generate a code for")
	token := flag.String("token", "", "Ticket token to decode and compose")
	at := flag.Int64("time", 0, "Unix time in seconds (defaults to now)")
	digits := flag.Int("digits", totp.DefaultDigits, "Code digits")
	period := flag.Duration("period", totp.DefaultPeriod, "Code period")
	algorithm := flag.String("algorithm", string(totp.DefaultAlgorithm), "SHA1, SHA256 or SHA512")
	flag.Parse()

	if *secret == "" && *token == "" {
		fmt.Println("Usage: totp -secret <hex> | -token <token> [-time <unix>] [-digits n] [-period d] [-algorithm name]")
		os.Exit(1)
	}

	now := time.Now()
	if *at != 0 {
		now = time.Unix(*at, 0)
	}

	algo, err := totp.ParseAlgorithm(*algorithm)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	generator, err := totp.New(totp.Params{Digits: *digits, Period: *period, Algorithm: algo})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if *secret != "" {
		key, err := entry.DecodeHex(*secret)
		if err != nil {
			fmt.Printf("Error decoding secret: %v\n", err)
			os.Exit(1)
		}
		w, err := generator.Generate(key, now)
		if err != nil {
			fmt.Printf("Error generating TOTP: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s (window %d)\n", w.Code, w.Start.Unix())
	}

	if *token != "" {
		if err := describe(*token, generator, now); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	}
}

func describe(token string, generator *totp.Generator, now time.Time) error {
	cred, err := entry.DecodeErr(token)
	fmt.Printf("Kind:     %s\n", entry.Kind(cred))
	if err != nil {
		fmt.Printf("Fallback: %v\n", err)
	}

	switch c := cred.(type) {
	case entry.QRCode:
		fmt.Printf("Barcode:  %s\n", c.Barcode)
	case entry.StaticPDF417:
		fmt.Printf("Barcode:  %s\n", c.Barcode)
	case entry.RotatingPDF417:
		payload, err := rotating.NewComposer(clock.Fixed(now), generator, generator).Payload(c)
		if err != nil {
			return err
		}
		fmt.Printf("Event:    %t\n", c.HasEventKey())
		if c.FallbackBarcode != "" {
			fmt.Printf("Fallback: %s\n", c.FallbackBarcode)
		}
		fmt.Printf("Payload:  %s\n", payload)
	}
	return nil
}
