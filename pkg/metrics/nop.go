package metrics

import "time"

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordTraining(string, bool) {}
func (Nop) RecordPrediction(string, bool) {}
func (Nop) RecordFetch(string, bool) {}
func (Nop) RecordError(string) {}
func (Nop) RecordLastClose(string, float64) {}
func (Nop) RecordValRMSE(string, float64) {}
func (Nop) RecordEngineLatency(string, time.Duration) {}
func (Nop) RecordLatency(string, time.Duration) {}
