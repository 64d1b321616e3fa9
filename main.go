// Marketplace stock sync (Go)
// ---------------------------
//
// One-shot job that pushes the supplier stock feed to two marketplace seller
// accounts:
//   • Downloads the remnant spreadsheet once per run (zip archive, one workbook).
//   • Ozon-style seller API: cursor-paginated catalog, batched stock and price updates.
//   • Yandex.Market-style partner API: token-paginated catalog, one pass per
//     campaign (FBS, DBS), each with its own warehouse.
//   • Optional Postgres run report (one row per marketplace target).
//
// Fully sequential: no retries, no concurrency, no state carried across runs.
// A timeout or connection failure aborts the remainder of the run; batches
// already delivered stay delivered.
//
// Configuration is primarily via environment variables (flags can override):
//   CLIENT_ID, SELLER_TOKEN, MARKET_TOKEN, FBS_ID, DBS_ID,
//   WAREHOUSE_FBS_ID, WAREHOUSE_DBS_ID, FEED_URL, PG_DSN, PG_SCHEMA, ...
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"marketplace-stock-sync/adapters"
	"marketplace-stock-sync/feed"
	"marketplace-stock-sync/pipeline"
	"marketplace-stock-sync/report"
)

// ───────── Defaults ─────────

const (
	defaultFeedURL    = "https://timeworld.ru/upload/files/ostatki.zip"
	defaultOzonBase   = "https://api-seller.ozon.ru"
	defaultMarketBase = "https://api.partner.market.yandex.ru"

	defaultHTTPTimeout = 30 * time.Second

	// Per-API batch limits.
	defaultOzonStockBatch   = 100
	defaultOzonPriceBatch   = 900
	defaultMarketStockBatch = 2000
	defaultMarketPriceBatch = 500
)

// ───────── Config ─────────

type config struct {
	feedURL string
	timeout time.Duration

	// Ozon account
	ozonBase       string
	clientID       string
	sellerToken    string
	ozonStockBatch int
	ozonPriceBatch int

	// Market account (two campaigns)
	marketBase       string
	marketToken      string
	fbsID            string
	dbsID            string
	warehouseFBS     int64
	warehouseDBS     int64
	marketStockBatch int
	marketPriceBatch int

	// Report sink (optional)
	pgDSN        string
	pgSchema     string
	pgMaxConns   int
	pgViaBouncer bool

	jsonLogs bool
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return def
	}
}

func parseFlags() config {
	var cfg config
	var warehouseFBS, warehouseDBS string

	flag.StringVar(&cfg.feedURL, "feed-url", envString("FEED_URL", defaultFeedURL), "Stock feed archive URL. Env: FEED_URL")
	flag.DurationVar(&cfg.timeout, "timeout", time.Duration(envInt("HTTP_TIMEOUT_SEC", int(defaultHTTPTimeout/time.Second)))*time.Second, "HTTP client timeout. Env: HTTP_TIMEOUT_SEC")

	flag.StringVar(&cfg.ozonBase, "ozon-base-url", envString("OZON_BASE_URL", defaultOzonBase), "Ozon seller API base URL. Env: OZON_BASE_URL")
	flag.StringVar(&cfg.clientID, "client-id", envString("CLIENT_ID", ""), "Ozon seller client id. Env: CLIENT_ID")
	flag.StringVar(&cfg.sellerToken, "seller-token", envString("SELLER_TOKEN", ""), "Ozon seller API key. Env: SELLER_TOKEN")
	flag.IntVar(&cfg.ozonStockBatch, "ozon-stock-batch", envInt("OZON_STOCK_BATCH", defaultOzonStockBatch), "Ozon stock update batch size. Env: OZON_STOCK_BATCH")
	flag.IntVar(&cfg.ozonPriceBatch, "ozon-price-batch", envInt("OZON_PRICE_BATCH", defaultOzonPriceBatch), "Ozon price update batch size. Env: OZON_PRICE_BATCH")

	flag.StringVar(&cfg.marketBase, "market-base-url", envString("MARKET_BASE_URL", defaultMarketBase), "Market partner API base URL. Env: MARKET_BASE_URL")
	flag.StringVar(&cfg.marketToken, "market-token", envString("MARKET_TOKEN", ""), "Market partner API token. Env: MARKET_TOKEN")
	flag.StringVar(&cfg.fbsID, "fbs-id", envString("FBS_ID", ""), "FBS campaign id. Env: FBS_ID")
	flag.StringVar(&cfg.dbsID, "dbs-id", envString("DBS_ID", ""), "DBS campaign id. Env: DBS_ID")
	flag.StringVar(&warehouseFBS, "warehouse-fbs-id", envString("WAREHOUSE_FBS_ID", ""), "FBS warehouse id. Env: WAREHOUSE_FBS_ID")
	flag.StringVar(&warehouseDBS, "warehouse-dbs-id", envString("WAREHOUSE_DBS_ID", ""), "DBS warehouse id. Env: WAREHOUSE_DBS_ID")
	flag.IntVar(&cfg.marketStockBatch, "market-stock-batch", envInt("MARKET_STOCK_BATCH", defaultMarketStockBatch), "Market stock update batch size. Env: MARKET_STOCK_BATCH")
	flag.IntVar(&cfg.marketPriceBatch, "market-price-batch", envInt("MARKET_PRICE_BATCH", defaultMarketPriceBatch), "Market price update batch size. Env: MARKET_PRICE_BATCH")

	flag.StringVar(&cfg.pgDSN, "pg-dsn", envString("PG_DSN", ""), "Postgres DSN (enables the run report). Env: PG_DSN")
	flag.StringVar(&cfg.pgSchema, "pg-schema", envString("PG_SCHEMA", "public"), "Run report schema. Env: PG_SCHEMA")
	flag.IntVar(&cfg.pgMaxConns, "pg-max-conns", envInt("PG_MAX_CONNS", 2), "Run report max connections. Env: PG_MAX_CONNS")
	flag.BoolVar(&cfg.pgViaBouncer, "pg-via-bouncer", envBool("PG_VIA_BOUNCER", true), "Use simple protocol for PgBouncer txn pooling. Env: PG_VIA_BOUNCER")

	flag.BoolVar(&cfg.jsonLogs, "json-logs", envBool("JSON_LOGS", false), "Emit JSON logs instead of console output. Env: JSON_LOGS")

	flag.Parse()

	var missing []string
	for _, req := range []struct{ name, val string }{
		{"CLIENT_ID", cfg.clientID},
		{"SELLER_TOKEN", cfg.sellerToken},
		{"MARKET_TOKEN", cfg.marketToken},
		{"FBS_ID", cfg.fbsID},
		{"DBS_ID", cfg.dbsID},
		{"WAREHOUSE_FBS_ID", warehouseFBS},
		{"WAREHOUSE_DBS_ID", warehouseDBS},
	} {
		if strings.TrimSpace(req.val) == "" {
			missing = append(missing, req.name)
		}
	}
	if len(missing) > 0 {
		fmt.Fprintln(os.Stderr, "missing required configuration:", strings.Join(missing, ", "))
		os.Exit(2)
	}

	var err error
	if cfg.warehouseFBS, err = strconv.ParseInt(warehouseFBS, 10, 64); err != nil {
		fmt.Fprintln(os.Stderr, "WAREHOUSE_FBS_ID parse:", err)
		os.Exit(2)
	}
	if cfg.warehouseDBS, err = strconv.ParseInt(warehouseDBS, 10, 64); err != nil {
		fmt.Fprintln(os.Stderr, "WAREHOUSE_DBS_ID parse:", err)
		os.Exit(2)
	}
	if cfg.ozonStockBatch <= 0 || cfg.ozonPriceBatch <= 0 || cfg.marketStockBatch <= 0 || cfg.marketPriceBatch <= 0 {
		fmt.Fprintln(os.Stderr, "batch sizes must be positive")
		os.Exit(2)
	}

	return cfg
}

func newLogger(jsonLogs bool) *zap.Logger {
	var logger *zap.Logger
	var err error
	if jsonLogs {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init:", err)
		os.Exit(2)
	}
	return logger
}

// ───────── Sync phases ─────────

// syncOzon runs catalog fetch → stock upload → price upload for the Ozon
// account. The result row is filled even when a phase fails.
func syncOzon(ctx context.Context, logger *zap.Logger, oz *adapters.OzonAdapter, remnants []feed.Remnant, cfg config) (report.RunResult, error) {
	res := report.RunResult{Marketplace: "ozon", StartedAt: time.Now().UTC(), Status: "ok"}
	log := logger.With(zap.String("marketplace", "ozon"))

	fail := func(err error) (report.RunResult, error) {
		res.Status = adapters.Classify(err)
		res.Error = err.Error()
		res.FinishedAt = time.Now().UTC()
		return res, err
	}

	offerIDs, err := oz.OfferIDs(ctx)
	if err != nil {
		return fail(fmt.Errorf("fetch catalog: %w", err))
	}
	res.Offers = len(offerIDs)
	log.Info("catalog fetched", zap.Int("offers", len(offerIDs)))

	stocks, unmatched, err := pipeline.BuildOzonStocks(remnants, offerIDs)
	if err != nil {
		return fail(fmt.Errorf("map stocks: %w", err))
	}
	res.StocksSent = len(stocks)
	for _, s := range stocks {
		if s.Stock > 0 {
			res.NonZero++
		}
	}
	res.StockBatches, err = pipeline.UploadBatches(ctx, stocks, cfg.ozonStockBatch,
		func(ctx context.Context, batch []adapters.OzonStock) error {
			_, err := oz.UpdateStocks(ctx, batch)
			return err
		})
	if err != nil {
		return fail(fmt.Errorf("upload stocks: %w", err))
	}
	log.Info("stocks uploaded",
		zap.Int("rows", len(stocks)),
		zap.Int("non_zero", res.NonZero),
		zap.Int("zero_filled", len(unmatched)),
		zap.Int("batches", res.StockBatches))

	prices := pipeline.BuildOzonPrices(remnants, offerIDs)
	res.PricesSent = len(prices)
	res.PriceBatches, err = pipeline.UploadBatches(ctx, prices, cfg.ozonPriceBatch,
		func(ctx context.Context, batch []adapters.OzonPrice) error {
			_, err := oz.UpdatePrices(ctx, batch)
			return err
		})
	if err != nil {
		return fail(fmt.Errorf("upload prices: %w", err))
	}
	log.Info("prices uploaded", zap.Int("rows", len(prices)), zap.Int("batches", res.PriceBatches))

	res.FinishedAt = time.Now().UTC()
	return res, nil
}

// syncMarketCampaign runs the same three phases against one Market campaign.
func syncMarketCampaign(ctx context.Context, logger *zap.Logger, mk *adapters.MarketAdapter, remnants []feed.Remnant, campaign, campaignID string, warehouseID int64, cfg config) (report.RunResult, error) {
	res := report.RunResult{Marketplace: "market", Campaign: campaign, StartedAt: time.Now().UTC(), Status: "ok"}
	log := logger.With(zap.String("marketplace", "market"), zap.String("campaign", campaign))

	fail := func(err error) (report.RunResult, error) {
		res.Status = adapters.Classify(err)
		res.Error = err.Error()
		res.FinishedAt = time.Now().UTC()
		return res, err
	}

	offerIDs, err := mk.OfferIDs(ctx, campaignID)
	if err != nil {
		return fail(fmt.Errorf("fetch catalog: %w", err))
	}
	res.Offers = len(offerIDs)
	log.Info("catalog fetched", zap.Int("offers", len(offerIDs)))

	stocks, unmatched, err := pipeline.BuildMarketStocks(remnants, offerIDs, warehouseID, time.Now())
	if err != nil {
		return fail(fmt.Errorf("map stocks: %w", err))
	}
	res.StocksSent = len(stocks)
	for _, s := range stocks {
		if len(s.Items) > 0 && s.Items[0].Count > 0 {
			res.NonZero++
		}
	}
	res.StockBatches, err = pipeline.UploadBatches(ctx, stocks, cfg.marketStockBatch,
		func(ctx context.Context, batch []adapters.MarketStock) error {
			status, err := mk.UpdateStocks(ctx, campaignID, batch)
			if err == nil {
				log.Debug("stock batch accepted", zap.String("status", status))
			}
			return err
		})
	if err != nil {
		return fail(fmt.Errorf("upload stocks: %w", err))
	}
	log.Info("stocks uploaded",
		zap.Int("rows", len(stocks)),
		zap.Int("non_zero", res.NonZero),
		zap.Int("zero_filled", len(unmatched)),
		zap.Int("batches", res.StockBatches))

	prices, err := pipeline.BuildMarketPrices(remnants, offerIDs)
	if err != nil {
		return fail(fmt.Errorf("map prices: %w", err))
	}
	res.PricesSent = len(prices)
	res.PriceBatches, err = pipeline.UploadBatches(ctx, prices, cfg.marketPriceBatch,
		func(ctx context.Context, batch []adapters.MarketPrice) error {
			status, err := mk.UpdatePrices(ctx, campaignID, batch)
			if err == nil {
				log.Debug("price batch accepted", zap.String("status", status))
			}
			return err
		})
	if err != nil {
		return fail(fmt.Errorf("upload prices: %w", err))
	}
	log.Info("prices uploaded", zap.Int("rows", len(prices)), zap.Int("batches", res.PriceBatches))

	res.FinishedAt = time.Now().UTC()
	return res, nil
}

// ───────── Run ─────────

// run drives one full sync: feed once, then each marketplace target in
// order. The first failure aborts the remaining targets; the partial result
// row is still returned for the report.
func run(ctx context.Context, logger *zap.Logger, cfg config, runID uuid.UUID) []report.RunResult {
	client := &http.Client{Timeout: cfg.timeout}

	remnants, err := feed.Download(ctx, client, cfg.feedURL)
	if err != nil {
		logger.Error("feed download failed",
			zap.String("category", adapters.Classify(err)), zap.Error(err))
		return nil
	}
	logger.Info("feed downloaded", zap.Int("remnants", len(remnants)))

	oz, err := adapters.NewOzonAdapter(adapters.OzonOptions{
		BaseURL:  cfg.ozonBase,
		ClientID: cfg.clientID,
		APIKey:   cfg.sellerToken,
		Timeout:  cfg.timeout,
	})
	if err != nil {
		logger.Error("ozon adapter init failed", zap.Error(err))
		return nil
	}
	mk, err := adapters.NewMarketAdapter(adapters.MarketOptions{
		BaseURL: cfg.marketBase,
		Token:   cfg.marketToken,
		Timeout: cfg.timeout,
	})
	if err != nil {
		logger.Error("market adapter init failed", zap.Error(err))
		return nil
	}

	var results []report.RunResult
	record := func(res report.RunResult, err error) bool {
		res.RunID = runID
		results = append(results, res)
		if err != nil {
			logger.Error("sync target failed",
				zap.String("marketplace", res.Marketplace),
				zap.String("campaign", res.Campaign),
				zap.String("category", res.Status),
				zap.Error(err))
			return false
		}
		return true
	}

	if res, err := syncOzon(ctx, logger, oz, remnants, cfg); !record(res, err) {
		return results
	}
	if res, err := syncMarketCampaign(ctx, logger, mk, remnants, "fbs", cfg.fbsID, cfg.warehouseFBS, cfg); !record(res, err) {
		return results
	}
	if res, err := syncMarketCampaign(ctx, logger, mk, remnants, "dbs", cfg.dbsID, cfg.warehouseDBS, cfg); !record(res, err) {
		return results
	}
	return results
}

func main() {
	_ = godotenv.Load()
	cfg := parseFlags()
	logger := newLogger(cfg.jsonLogs)
	defer logger.Sync()

	ctx := context.Background()
	runID := uuid.New()
	logger.Info("sync run starting", zap.String("run_id", runID.String()))

	results := run(ctx, logger, cfg, runID)

	if cfg.pgDSN != "" && len(results) > 0 {
		sink, err := report.Open(ctx, report.Config{
			DSN:        cfg.pgDSN,
			Schema:     cfg.pgSchema,
			MaxConns:   cfg.pgMaxConns,
			ViaBouncer: cfg.pgViaBouncer,
		})
		if err != nil {
			logger.Error("report sink unavailable", zap.Error(err))
		} else {
			defer sink.Close()
			if err := sink.EnsureSchema(ctx); err != nil {
				logger.Error("report schema init failed", zap.Error(err))
			} else if err := sink.Record(ctx, results); err != nil {
				logger.Error("report insert failed", zap.Error(err))
			}
		}
	}

	logger.Info("sync run finished", zap.Int("targets", len(results)))
}
