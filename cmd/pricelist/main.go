// Command pricelist exports the normalized panel catalog with resale prices to JSON and optionally XLSX
package main

import (
	"context"
	"flag"
	"net/url"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dropsource/storefront/app/services"
	"github.com/dropsource/storefront/config"
)

func main() {
	jsonPath := flag.String("json", "pricelist.json", "JSON output path (- for stdout)")
	xlsxPath := flag.String("xlsx", "", "optional XLSX output path")
	provider := flag.String("provider", "", "provider label; defaults to the panel host")
	timeout := flag.Duration("timeout", time.Minute, "panel request timeout")
	flag.Parse()

	panelCfg, err := config.LoadPanelConfig()
	if err != nil {
		log.Fatalf("Failed to load panel configuration: %v", err)
	}

	label := *provider
	if label == "" {
		if u, err := url.Parse(panelCfg.URL); err == nil && u.Host != "" {
			label = u.Host
		} else {
			label = "panel"
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	panel := services.NewPanelClient(panelCfg.URL, panelCfg.APIKey, panelCfg.Timeout)
	raw, err := panel.Services(ctx)
	if err != nil {
		log.Fatalf("Failed to fetch services: %v", err)
	}
	svcs, err := services.NormalizeCatalog(raw)
	if err != nil {
		log.Fatalf("Unexpected services payload: %v", err)
	}

	rows := BuildRows(label, svcs)

	if err := writeFile(*jsonPath, func(f *os.File) error { return WriteJSON(f, rows) }); err != nil {
		log.Fatalf("Failed to write JSON: %v", err)
	}
	if *xlsxPath != "" {
		if err := writeFile(*xlsxPath, func(f *os.File) error { return WriteXLSX(f, rows) }); err != nil {
			log.Fatalf("Failed to write XLSX: %v", err)
		}
	}

	log.WithFields(log.Fields{
		"provider": label,
		"services": len(rows),
		"json":     *jsonPath,
		"xlsx":     *xlsxPath,
	}).Info("Price list exported")
}

func writeFile(path string, write func(*os.File) error) error {
	if path == "-" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
