package main

import (
	"os"

	"github.com/trezcool/spmb/core"
	logsvc "github.com/trezcool/spmb/services/logger"
)

func main() {
	conf, err := core.NewConfig()
	if err != nil {
		panic(err)
	}
	logger := logsvc.NewStdLogger(conf, "admin")
	translator := core.NewTranslator()

	cli := commandLine{
		conf:       conf,
		out:        os.Stdout,
		validate:   core.NewValidate(translator),
		translator: translator,
	}
	err = cli.run(os.Args)
	if cerr := cli.close(); cerr != nil {
		logger.WithError(cerr).Error("closing database")
	}
	if err != nil {
		if err != errHelp {
			logger.WithError(err).Error("command failed")
		}
		os.Exit(1)
	}
}
