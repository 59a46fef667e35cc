package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/holiman/uint256"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/yield-bearing-ledger-system/internal/accrual"
	"github.com/sheikh-saqib/yield-bearing-ledger-system/internal/bridge"
	kafkax "github.com/sheikh-saqib/yield-bearing-ledger-system/internal/events/kafka"
	interfaces "github.com/sheikh-saqib/yield-bearing-ledger-system/internal/interfaces"
	"github.com/sheikh-saqib/yield-bearing-ledger-system/internal/ledger"
	"github.com/sheikh-saqib/yield-bearing-ledger-system/internal/logx"
	"github.com/sheikh-saqib/yield-bearing-ledger-system/internal/models"
	"github.com/sheikh-saqib/yield-bearing-ledger-system/internal/storage/memory"
	"github.com/sheikh-saqib/yield-bearing-ledger-system/internal/storage/postgres"
	"github.com/sheikh-saqib/yield-bearing-ledger-system/internal/vault"
)

// logAssetTransfer stands in for the external base-asset custody: payouts
// are acknowledged and logged. Real deployments inject their asset rail.
type logAssetTransfer struct{}

func (logAssetTransfer) Send(ctx context.Context, to string, amount *uint256.Int) error {
	logx.Info("VAULT", fmt.Sprintf("paying out %s base units to %s", amount.Dec(), to))
	return nil
}

// localTransport delivers bridge messages back into this instance's own
// gateway, so a standalone binary can exercise the protocol without Kafka.
type localTransport struct {
	handler interfaces.MessageHandler
}

func (t *localTransport) Publish(ctx context.Context, destinationInstance string, msg models.BridgeMessage) error {
	return t.handler.OnMessage(ctx, msg)
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// parseAmount converts a human-denominated decimal string ("10.25") into
// 1e18-scaled base units.
func parseAmount(raw string) (*uint256.Int, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("amount %q must not be negative", raw)
	}
	scaled := d.Mul(decimal.New(1, 18))
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("amount %q has more than 18 decimal places", raw)
	}
	value, overflow := uint256.FromBig(scaled.BigInt())
	if overflow {
		return nil, fmt.Errorf("amount %q exceeds the supported range", raw)
	}
	return value, nil
}

// formatAmount renders 1e18-scaled base units back as a decimal string.
func formatAmount(value *uint256.Int) string {
	return decimal.NewFromBigInt(value.ToBig(), -18).String()
}

// requestAmount builds the tagged debit request from the wire fields.
func requestAmount(full bool, amount string) (ledger.Amount, error) {
	if full {
		return ledger.FullBalance(), nil
	}
	value, err := parseAmount(amount)
	if err != nil {
		return ledger.Amount{}, err
	}
	return ledger.Exact(value), nil
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrInsufficientBalance):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, ledger.ErrRateRegression):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, accrual.ErrOverflow):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}

func main() {
	_ = godotenv.Load()

	initialRate, err := uint256.FromDecimal(envOr("GLOBAL_RATE", "0"))
	if err != nil {
		log.Fatalf("invalid GLOBAL_RATE: %v", err)
	}

	var store interfaces.AccountStore = memory.NewMemoryAccountStore()
	var deadLetters interfaces.DeadLetterStore = memory.NewMemoryDeadLetterStore()
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			log.Fatalf("could not open postgres: %v", err)
		}
		pgStore := postgres.NewPostgresAccountStore(db)
		if err := pgStore.EnsureSchema(context.Background()); err != nil {
			log.Fatalf("could not ensure schema: %v", err)
		}
		store = pgStore

		// Dead letters must outlive the process: the transport has already
		// consumed the message by the time a credit fails.
		pgDeadLetters := postgres.NewPostgresDeadLetterStore(db)
		if err := pgDeadLetters.EnsureSchema(context.Background()); err != nil {
			log.Fatalf("could not ensure dead-letter schema: %v", err)
		}
		deadLetters = pgDeadLetters
	}

	ledgerService := ledger.NewLedger(store, initialRate, func() uint64 {
		return uint64(time.Now().Unix())
	})

	instanceId := envOr("INSTANCE_ID", "local")
	topicPrefix := envOr("BRIDGE_TOPIC_PREFIX", "bridge_")

	var publisher interfaces.EventPublisher
	var gateway *bridge.Gateway

	brokersRaw := os.Getenv("KAFKA_BROKERS")
	if brokersRaw != "" {
		brokers := strings.Split(brokersRaw, ",")
		publisher = kafkax.NewPublisher(brokers)
		transport := kafkax.NewTransport(brokers, topicPrefix)
		gateway = bridge.NewGateway(ledgerService, transport, deadLetters)

		consumer := kafkax.NewConsumer(brokers, topicPrefix+instanceId, instanceId, gateway)
		go func() {
			if err := consumer.Run(context.Background()); err != nil {
				logx.Error("BRIDGE", fmt.Sprint(err))
			}
		}()
	} else {
		// standalone mode: bridge messages loop back into this instance
		loopback := &localTransport{}
		gateway = bridge.NewGateway(ledgerService, loopback, deadLetters)
		loopback.handler = gateway
	}

	vaultService := vault.NewExchangeVault(ledgerService, logAssetTransfer{}, publisher)

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	http.HandleFunc("/vault/deposit", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			Account string `json:"account"`
			Amount  string `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		amount, err := parseAmount(req.Amount)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := vaultService.Deposit(r.Context(), req.Account, amount); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"status":"deposited"}`))
	})

	http.HandleFunc("/vault/redeem", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			Account string `json:"account"`
			Amount  string `json:"amount"`
			Full    bool   `json:"full"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		amount, err := requestAmount(req.Full, req.Amount)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		paid, err := vaultService.Redeem(r.Context(), req.Account, amount)
		if err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(struct {
			Account string `json:"account"`
			Paid    string `json:"paid"`
		}{req.Account, formatAmount(paid)})
	})

	http.HandleFunc("/transfer", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			FromAccount string `json:"from_account"`
			ToAccount   string `json:"to_account"`
			Amount      string `json:"amount"`
			Full        bool   `json:"full"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		amount, err := requestAmount(req.Full, req.Amount)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		moved, err := ledgerService.Transfer(r.Context(), req.FromAccount, req.ToAccount, amount)
		if err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(struct {
			Moved string `json:"moved"`
		}{formatAmount(moved)})
	})

	http.HandleFunc("/bridge/send", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			Account             string `json:"account"`
			DestinationInstance string `json:"destination_instance"`
			DestinationAccount  string `json:"destination_account"`
			Amount              string `json:"amount"`
			Full                bool   `json:"full"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		amount, err := requestAmount(req.Full, req.Amount)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		msg, err := gateway.Send(r.Context(), req.Account, req.DestinationInstance, req.DestinationAccount, amount)
		if err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(struct {
			MessageId string `json:"message_id"`
			Amount    string `json:"amount"`
		}{msg.ID, formatAmount(msg.Amount)})
	})

	http.HandleFunc("/admin/rate", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			Rate string `json:"rate"` // raw 1e18-scale rate per time unit
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		rate, err := uint256.FromDecimal(req.Rate)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := ledgerService.SetGlobalRate(rate); err != nil {
			writeError(w, err)
			return
		}
		w.Write([]byte(`{"status":"rate updated"}`))
	})

	http.HandleFunc("/accounts/balance", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		accountId := r.URL.Query().Get("account_id")
		if accountId == "" {
			http.Error(w, "account_id is a mandatory field", http.StatusBadRequest)
			return
		}

		effective, err := ledgerService.EffectiveBalance(r.Context(), accountId)
		if err != nil {
			writeError(w, err)
			return
		}
		principal, err := ledgerService.Principal(r.Context(), accountId)
		if err != nil {
			writeError(w, err)
			return
		}
		rate, err := ledgerService.AssignedRate(r.Context(), accountId)
		if err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(struct {
			AccountID        string `json:"account_id"`
			EffectiveBalance string `json:"effective_balance"`
			Principal        string `json:"principal"`
			AssignedRate     string `json:"assigned_rate"`
		}{accountId, formatAmount(effective), formatAmount(principal), rate.Dec()})
	})

	http.HandleFunc("/accounts", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		accounts, err := store.GetAccounts(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		type accountView struct {
			ID              string `json:"id"`
			Principal       string `json:"principal"`
			AssignedRate    string `json:"assigned_rate"`
			LastAccrualTime uint64 `json:"last_accrual_time"`
		}
		views := make([]accountView, 0, len(accounts))
		for _, account := range accounts {
			views = append(views, accountView{
				ID:              account.ID,
				Principal:       formatAmount(account.Principal),
				AssignedRate:    account.AssignedRate.Dec(),
				LastAccrualTime: account.LastAccrualTime,
			})
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(views)
	})

	http.HandleFunc("/bridge/deadletters", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		letters, err := deadLetters.GetDeadLetters(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(letters)
	})

	addr := ":" + envOr("PORT", "8080")
	log.Printf("Starting instance %s on %s", instanceId, addr)
	log.Fatal(http.ListenAndServe(addr, nil))
}
