package delivery

import "github.com/btcsuite/btclog/v2"

// Subsystem is the logging tag of the delivery package.
const Subsystem = "DLVR"

// log is silent until UseLogger is called.
var log btclog.Logger = btclog.Disabled

// DisableLog silences the package logger.
func DisableLog() {
	UseLogger(btclog.Disabled)
}

// UseLogger sets the package logger.
func UseLogger(logger btclog.Logger) {
	log = logger
}
