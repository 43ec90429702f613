// Package nlog is a thin, package-level leveled logger, mirroring the
// surface aistore's own cmn/nlog exposes but backed by logrus rather than
// a hand-rolled rotating writer.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package nlog

import (
	"os"

	"github.com/sirupsen/logrus"
)

var log = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// SetLevel maps a verbosity integer (0 quiet .. 5 chatty) onto logrus
// levels, the same coarse scale aistore's cmn.Rom.FastV uses.
func SetLevel(v int) {
	switch {
	case v <= 0:
		log.SetLevel(logrus.WarnLevel)
	case v <= 2:
		log.SetLevel(logrus.InfoLevel)
	default:
		log.SetLevel(logrus.DebugLevel)
	}
}

func Infoln(args ...any)                 { log.Infoln(args...) }
func Infof(format string, args ...any)    { log.Infof(format, args...) }
func Warningf(format string, args ...any) { log.Warnf(format, args...) }
func Errorln(args ...any)                 { log.Errorln(args...) }
func Errorf(format string, args ...any)    { log.Errorf(format, args...) }
func Debugf(format string, args ...any)    { log.Debugf(format, args...) }
