package orders

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/LucasBenitez7/acme-commerce-starter-sub000/internal/history"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/internal/inventory"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/db"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/logger"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/metrics"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/outbox"
)

// NewPostgresService assembles the order service and its repository over a
// single database client. The repository is returned for the expiry sweep.
func NewPostgresService(dbClient *db.Client, logg *logger.Logger, reg prometheus.Registerer) (Service, Repository, error) {
	if dbClient == nil {
		return nil, nil, fmt.Errorf("db client required")
	}
	conn := dbClient.DB()
	repo := NewRepository(conn)

	historyLog, err := history.NewLog(history.NewRepository(conn))
	if err != nil {
		return nil, nil, err
	}
	ledger, err := inventory.NewLedger(inventory.NewRepository(conn))
	if err != nil {
		return nil, nil, err
	}
	authorizer, err := NewOwnershipAuthorizer(repo)
	if err != nil {
		return nil, nil, err
	}

	svc, err := NewService(ServiceParams{
		Repo:       repo,
		Tx:         dbClient,
		History:    historyLog,
		Ledger:     ledger,
		Outbox:     outbox.NewService(outbox.NewRepository(conn), logg),
		Authorizer: authorizer,
		Logger:     logg,
		Metrics:    metrics.NewOrderTransitionMetrics(reg),
	})
	if err != nil {
		return nil, nil, err
	}
	return svc, repo, nil
}
