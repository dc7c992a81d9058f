package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/gabstv/httpdigest"
	"github.com/shopspring/decimal"

	"github.com/trais-tz/epay/billing"
	"github.com/trais-tz/epay/gepg"
	"github.com/trais-tz/epay/internal/gepgclient"
	"github.com/trais-tz/epay/reconcile"
)

// Yaml configuration reference
type (
	Gateway struct {
		Url     string        `yaml:"url"`
		Com     string        `yaml:"com"`
		Code    string        `yaml:"code"`
		Timeout time.Duration `yaml:"timeout"`
		Retries int           `yaml:"retries"`
		Backoff time.Duration `yaml:"backoff"`
		// Digest auth credentials for fronted endpoints, usually unset
		Username *string `yaml:"username,omitempty"`
		Password *string `yaml:"password,omitempty"`
	}
	Keystore struct {
		Path       string      `yaml:"path"`
		Passphrase string      `yaml:"passphrase"`
		Digest     gepg.Digest `yaml:"digest"`
	}
	Provider struct {
		SpCode     string `yaml:"sp-code"`
		SubSpCode  string `yaml:"sub-sp-code"`
		SystemID   string `yaml:"system-id"`
		ApprovedBy string `yaml:"approved-by"`
	}
	Fee struct {
		Amount  string `yaml:"amount"`
		GfsCode string `yaml:"gfs-code"`
	}
	Config struct {
		ProcessInterval time.Duration  `yaml:"process-interval"`
		ListenAddress   string         `yaml:"listen-address"`
		DatabasePath    string         `yaml:"database-path"`
		Gateway         Gateway        `yaml:"gateway"`
		Keystore        Keystore       `yaml:"keystore"`
		Provider        Provider       `yaml:"provider"`
		Fees            map[string]Fee `yaml:"fees"`
	}
)

func (c *Config) Compile() (ctrl *reconcile.Controller, db *badger.DB, err error) {
	keystore, err := os.ReadFile(c.Keystore.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read keystore: %w", err)
	}

	digest := c.Keystore.Digest
	if digest == "" {
		digest = gepg.DigestSHA1
	}

	signer, err := gepg.LoadSigner(keystore, c.Keystore.Passphrase, digest)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load signer: %w", err)
	}

	var httpClient http.Client
	if c.Gateway.Username != nil && c.Gateway.Password != nil {
		httpClient.Transport = httpdigest.New(*c.Gateway.Username, *c.Gateway.Password)
	}

	fees := make(billing.FeeTable, len(c.Fees))
	for category, fee := range c.Fees {
		amount, err := decimal.NewFromString(fee.Amount)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse amount for fee %q: %w", category, err)
		}
		fees[category] = billing.Fee{Amount: amount, GfsCode: fee.GfsCode}
	}

	db, err = badger.Open(badger.DefaultOptions(c.DatabasePath))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctrl = reconcile.New(reconcile.Config{
		DB: db,
		Codec: gepg.NewCodec(gepg.CodecConfig{
			SpCode:     c.Provider.SpCode,
			SubSpCode:  c.Provider.SubSpCode,
			SystemID:   c.Provider.SystemID,
			ApprovedBy: c.Provider.ApprovedBy,
			Signer:     signer,
		}),
		Client: gepgclient.New(gepgclient.Config{
			URL:     c.Gateway.Url,
			Com:     c.Gateway.Com,
			Code:    c.Gateway.Code,
			Timeout: c.Gateway.Timeout,
			Retries: c.Gateway.Retries,
			Backoff: c.Gateway.Backoff,
			Client:  &httpClient,
		}),
		Fees: fees,
	})
	return ctrl, db, nil
}
