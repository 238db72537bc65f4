package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Participant struct {
	Name         string `yaml:"name"`
	AssetParty   string `yaml:"asset_party"`
	PaymentParty string `yaml:"payment_party"`
}

type Config struct {
	Broker struct {
		Listen   string `yaml:"listen"`
		Gallery  string `yaml:"gallery"`
		KeyStore string `yaml:"key_store"`
	} `yaml:"broker"`
	AssetLedger struct {
		URL string `yaml:"url"`
	} `yaml:"asset_ledger"`
	PaymentLedger struct {
		BuyerURL  string `yaml:"buyer_url"`
		SellerURL string `yaml:"seller_url"`
	} `yaml:"payment_ledger"`
	Participants []Participant `yaml:"participants"`
	Local        struct {
		Assets        []string `yaml:"assets"`
		FundingDenom  string   `yaml:"funding_denom"`
		FundingAmount int64    `yaml:"funding_amount"`
	} `yaml:"local"`
}

func Default(home string) Config {
	cfg := Config{}
	cfg.Broker.Listen = "localhost:8090"
	cfg.Broker.Gallery = "gallery"
	cfg.Broker.KeyStore = filepath.Join(home, ".artmarket", "keys")
	cfg.AssetLedger.URL = "http://localhost:9040"
	cfg.PaymentLedger.BuyerURL = "http://localhost:9050"
	cfg.PaymentLedger.SellerURL = "http://localhost:9051"
	cfg.Local.Assets = []string{"mona-lisa", "starry-night", "water-lilies"}
	cfg.Local.FundingDenom = "GBP"
	cfg.Local.FundingAmount = 10000
	return cfg
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Write(path string, cfg Config) error {
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}
