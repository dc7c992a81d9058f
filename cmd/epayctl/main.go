package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
)

func call(ctx context.Context, method, url string, payload any) (body []byte, err error) {
	var reader io.Reader
	if payload != nil {
		contents, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		reader = bytes.NewReader(contents)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach service: %w", err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("service returned status %d: %s", resp.StatusCode, body)
	}
	return body, nil
}

func dump(body []byte) {
	var pretty bytes.Buffer
	err := json.Indent(&pretty, body, "", "\t")
	if err != nil {
		fmt.Println(string(body))
		return
	}
	fmt.Println(pretty.String())
}

type item struct {
	Category string `json:"category"`
	Amount   string `json:"amount,omitempty"`
	Ref      string `json:"ref,omitempty"`
}

var app = cli.Command{
	Name:  "epayctl",
	Usage: "Operator tool for the tribunal e-payment service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "api",
			Usage: "Base URL of the epayd API",
			Value: "http://127.0.0.1:8080",
		},
	},
	Commands: []*cli.Command{
		{
			Name:  "submit",
			Usage: "Create a bill and submit it to the gateway",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "payer-name", Required: true},
				&cli.StringFlag{Name: "payer-phone"},
				&cli.StringFlag{Name: "payer-email"},
				&cli.StringFlag{Name: "currency", Value: "TZS"},
				&cli.StringFlag{Name: "reference", Required: true},
				&cli.StringFlag{Name: "description"},
				&cli.IntFlag{Name: "expiry-days", Value: 14},
				&cli.StringSliceFlag{
					Name:  "item",
					Usage: "Line item as category[:amount], repeatable",
				},
			},
			Action: func(ctx context.Context, c *cli.Command) (err error) {
				rawItems := c.StringSlice("item")
				if len(rawItems) == 0 {
					return errors.New("at least one --item is required")
				}

				var items []item
				for _, raw := range rawItems {
					category, amount, _ := strings.Cut(raw, ":")
					items = append(items, item{Category: category, Amount: amount})
				}

				body, err := call(ctx, http.MethodPost, c.String("api")+"/api/bills", map[string]any{
					"payerName":   c.String("payer-name"),
					"payerPhone":  c.String("payer-phone"),
					"payerEmail":  c.String("payer-email"),
					"currency":    c.String("currency"),
					"reference":   c.String("reference"),
					"description": c.String("description"),
					"expiryDays":  c.Int("expiry-days"),
					"items":       items,
				})
				if err != nil {
					return err
				}

				log.Println("[+] Bill created")
				dump(body)
				return nil
			},
		},
		{
			Name:      "status",
			Usage:     "Show a bill by its bill id",
			ArgsUsage: "BILL_ID",
			Action: func(ctx context.Context, c *cli.Command) (err error) {
				if c.Args().Len() != 1 {
					return errors.New("expecting exactly one bill id")
				}

				body, err := call(ctx, http.MethodGet, c.String("api")+"/api/bills/"+c.Args().First(), nil)
				if err != nil {
					return err
				}

				dump(body)
				return nil
			},
		},
		{
			Name:      "verify",
			Usage:     "Verify a payment by its control number",
			ArgsUsage: "CONTROL_NUMBER",
			Action: func(ctx context.Context, c *cli.Command) (err error) {
				if c.Args().Len() != 1 {
					return errors.New("expecting exactly one control number")
				}

				body, err := call(ctx, http.MethodGet, c.String("api")+"/api/payments/"+c.Args().First(), nil)
				if err != nil {
					return err
				}

				log.Println("[+] Payment found")
				dump(body)
				return nil
			},
		},
		{
			Name:  "payments",
			Usage: "List recorded payments, newest first",
			Action: func(ctx context.Context, c *cli.Command) (err error) {
				body, err := call(ctx, http.MethodGet, c.String("api")+"/api/payments", nil)
				if err != nil {
					return err
				}

				dump(body)
				return nil
			},
		},
	},
}

func main() {
	err := app.Run(context.TODO(), os.Args)
	if err != nil {
		log.Fatal(err)
	}
}
