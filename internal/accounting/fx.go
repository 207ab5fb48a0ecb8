package accounting

import (
	"github.com/smallbiznis/staypoint/internal/accounting/quickbooks"
	"github.com/smallbiznis/staypoint/internal/accounting/repository"
	"github.com/smallbiznis/staypoint/internal/accounting/service"
	"go.uber.org/fx"
)

var Module = fx.Module("accounting.service",
	fx.Provide(quickbooks.NewHTTPClient),
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
