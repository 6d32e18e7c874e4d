package main

import (
	"github.com/datapeak/backend/internal/server"
	"github.com/datapeak/backend/internal/util"
	"github.com/datapeak/backend/pkg/logger"
	"github.com/datapeak/backend/pkg/logger/console"

	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.New(console.Params{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
