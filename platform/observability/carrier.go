package observability

import (
	"sort"

	"google.golang.org/grpc/metadata"
)

// incomingMetadata отдаёт propagator'у traceparent/tracestate из metadata входящего RPC.
// В inventory это запросы к gRPC health от оркестратора; nil metadata читается как пустая.
type incomingMetadata metadata.MD

func (m incomingMetadata) Get(key string) string {
	vals := metadata.MD(m).Get(key)
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

// Set нужен только для интерфейса TextMapCarrier, Extract его не вызывает
func (m incomingMetadata) Set(key, value string) {
	if m == nil {
		return
	}
	metadata.MD(m).Set(key, value)
}

func (m incomingMetadata) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
