package config

import (
	_ "github.com/recipe-edge/recipe-edge/internal/routeclass/apiread"
	_ "github.com/recipe-edge/recipe-edge/internal/routeclass/media"
	_ "github.com/recipe-edge/recipe-edge/internal/routeclass/navigation"
	_ "github.com/recipe-edge/recipe-edge/internal/routeclass/static"
)
