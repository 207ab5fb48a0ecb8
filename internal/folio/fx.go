package folio

import (
	"github.com/smallbiznis/staypoint/internal/folio/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("folio",
	fx.Provide(repository.Provide),
)
