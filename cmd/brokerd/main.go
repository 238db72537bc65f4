package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/rs/zerolog"

	"artmarket/broker/internal/config"
	"artmarket/broker/internal/identity"
	"artmarket/broker/internal/keys"
	"artmarket/broker/internal/ledger"
	"artmarket/broker/internal/market"
	"artmarket/broker/internal/server"
	"artmarket/broker/internal/swap"
)

var defaultParticipants = []string{"gallery", "alice", "bob", "carol"}

func main() {
	sdkCfg := sdk.GetConfig()
	sdkCfg.SetBech32PrefixForAccount("art", "artpub")
	sdkCfg.Seal()

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		if err := cmdInit(); err != nil {
			fmt.Fprintf(os.Stderr, "init failed: %v\n", err)
			os.Exit(1)
		}
	case "run":
		if err := cmdRun(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "run failed: %v\n", err)
			os.Exit(1)
		}
	case "status":
		if err := cmdStatus(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "status failed: %v\n", err)
			os.Exit(1)
		}
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("brokerd init | run | status")
}

func cmdInit() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	base := filepath.Join(home, ".artmarket")
	if err := os.MkdirAll(base, 0o700); err != nil {
		return err
	}

	cfg := config.Default(home)
	cfgPath := filepath.Join(base, "config.yaml")
	if err := os.MkdirAll(cfg.Broker.KeyStore, 0o700); err != nil {
		return err
	}

	for _, name := range defaultParticipants {
		key, created, err := keys.Ensure(cfg.Broker.KeyStore, name)
		if err != nil {
			return err
		}
		cfg.Participants = append(cfg.Participants, config.Participant{
			Name:         name,
			AssetParty:   key.Address,
			PaymentParty: key.Address,
		})
		if created {
			fmt.Printf("minted key for %s: %s\n", name, key.Address)
		}
	}

	if err := config.Write(cfgPath, cfg); err != nil {
		return err
	}
	fmt.Printf("initialized %s\n", cfgPath)
	return nil
}

func cmdRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	local := fs.Bool("local", false, "run against in-process ledgers instead of remote gateways")
	debug := fs.Bool("debug", false, "verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(cfg.Participants) == 0 {
		return fmt.Errorf("no participants configured, run brokerd init")
	}

	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()

	entries := make([]identity.Entry, 0, len(cfg.Participants))
	for _, p := range cfg.Participants {
		entries = append(entries, identity.Entry{
			Name:         p.Name,
			AssetParty:   p.AssetParty,
			PaymentParty: p.PaymentParty,
		})
	}
	registry := identity.NewRegistry(entries...)
	gallery := cfg.Broker.Gallery

	var (
		assets    ledger.AssetLedger
		buyerPay  ledger.PaymentLedger
		sellerPay ledger.PaymentLedger
	)
	if *local {
		galleryParty, err := registry.AssetParty(gallery)
		if err != nil {
			return err
		}
		mem := ledger.NewMemoryAssetLedger()
		mem.Seed(galleryParty, cfg.Local.Assets...)
		pay := ledger.NewMemoryPaymentLedger()
		funding := sdk.NewCoin(cfg.Local.FundingDenom, sdkmath.NewInt(cfg.Local.FundingAmount))
		for _, p := range cfg.Participants {
			if p.Name == gallery {
				continue
			}
			pay.Fund(p.PaymentParty, funding)
		}
		assets, buyerPay, sellerPay = mem, pay, pay
		log.Info().Strs("assets", cfg.Local.Assets).Msg("running with in-process ledgers")
	} else {
		assets = ledger.NewAssetClient(cfg.AssetLedger.URL)
		buyerPay = ledger.NewPaymentClient(cfg.PaymentLedger.BuyerURL)
		sellerPay = ledger.NewPaymentClient(cfg.PaymentLedger.SellerURL)
	}

	orch := swap.NewOrchestrator(registry, assets, buyerPay, sellerPay, gallery, log)
	coord := market.NewCoordinator(orch, registry, assets, gallery, log)
	srv := server.New(coord, log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return srv.Run(ctx, cfg.Broker.Listen)
}

func cmdStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	addr := fs.String("addr", "", "broker address to query (defaults to configured listen address)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	target := strings.TrimSpace(*addr)
	if target == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		target = cfg.Broker.Listen
	}
	if !strings.HasPrefix(target, "http") {
		target = "http://" + target
	}
	target = strings.TrimRight(target, "/")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(target + "/v1/artworks")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("broker returned status %d", resp.StatusCode)
	}

	var body struct {
		Artworks []market.Listing `json:"artworks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return err
	}

	fmt.Printf("broker at %s\n", target)
	for _, listing := range body.Artworks {
		fmt.Printf("  %s (held by %s)\n", listing.AssetID, listing.Owner)
		for _, bid := range listing.Bids {
			fmt.Printf("    %s by %s [%s]\n", bid.Price, bid.Bidder, bid.Status)
		}
	}
	if len(body.Artworks) == 0 {
		fmt.Println("  no artworks listed")
	}
	return nil
}

func loadConfig() (config.Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return config.Config{}, err
	}
	cfgPath := filepath.Join(home, ".artmarket", "config.yaml")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("config not found, run brokerd init: %w", err)
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *config.Config) {
	if v := strings.TrimSpace(os.Getenv("ASSET_LEDGER_URL")); v != "" {
		cfg.AssetLedger.URL = v
	}
	if v := strings.TrimSpace(os.Getenv("PAYMENT_BUYER_URL")); v != "" {
		cfg.PaymentLedger.BuyerURL = v
	}
	if v := strings.TrimSpace(os.Getenv("PAYMENT_SELLER_URL")); v != "" {
		cfg.PaymentLedger.SellerURL = v
	}
	if v := strings.TrimSpace(os.Getenv("BROKER_LISTEN")); v != "" {
		cfg.Broker.Listen = v
	}
}
