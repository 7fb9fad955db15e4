package otel

import (
	"go.opentelemetry.io/otel/attribute"
)

const (
	AttrTopic         = attribute.Key("messaging.destination.name")
	AttrPartition     = attribute.Key("messaging.destination.partition.id")
	AttrBatchSize     = attribute.Key("messaging.batch.message_count")
	AttrStartOffset   = attribute.Key("reader.start_offset")
	AttrCommitStatus  = attribute.Key("reader.commit.status")
	AttrErrorAction   = attribute.Key("reader.error.action")
	AttrErrorPhase    = attribute.Key("reader.error.phase")
	AttrErrorKind     = attribute.Key("reader.error.kind")
	AttrCommitOffset  = attribute.Key("reader.commit.offset")
)

// Status values
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Span names
const (
	SpanFetch   = "fetch"
	SpanProcess = "process"
	SpanCommit  = "commit"
)
