/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package logging

import "fmt"

type decoratedLogger struct {
	logger Logger
	prefix string
	args   []interface{}
}

func (dl *decoratedLogger) Log(level LogLevel, text string, args ...interface{}) {
	passedArgs := make([]interface{}, 0, len(dl.args)+len(args))
	passedArgs = append(passedArgs, dl.args...)
	passedArgs = append(passedArgs, args...)
	dl.logger.Log(level, fmt.Sprintf("%s%s", dl.prefix, text), passedArgs...)
}

// Decorate prefixes every message with prefix and prepends args to the
// key/value pairs of every message.
func Decorate(logger Logger, prefix string, args ...interface{}) Logger {
	return &decoratedLogger{
		prefix: prefix,
		logger: OrNil(logger),
		args:   args,
	}
}

// Observer receives a copy of every message passing through an observed logger.
type Observer func(level LogLevel, text string)

type observedLogger struct {
	logger   Logger
	observer Observer
}

func (ol *observedLogger) Log(level LogLevel, text string, args ...interface{}) {
	ol.observer(level, text)
	ol.logger.Log(level, text, args...)
}

// Observe returns a logger forwarding to logger, after handing every message
// to observer.
func Observe(logger Logger, observer Observer) Logger {
	return &observedLogger{
		logger:   OrNil(logger),
		observer: observer,
	}
}
