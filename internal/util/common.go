package util

import (
	"fmt"
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

func ContinueOrFatal(err error) {
	if err != nil {
		logrus.Fatal(err)
	}
}

// SafeCall runs fn and turns a panic into an error so a long-running loop
// can log it and carry on.
func SafeCall(fn func() error) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			logrus.WithField("stack", string(debug.Stack())).Debug("recovered panic stack")
			err = fmt.Errorf("recovered panic: %v", recovered)
		}
	}()

	return fn()
}
