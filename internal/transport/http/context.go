package http

import (
	"context"

	"fieldreport/pkg/contracts/domain"
)

type kindKey struct{}

func contextWithKind(ctx context.Context, kind domain.ReportKind) context.Context {
	return context.WithValue(ctx, kindKey{}, kind)
}

func kindFromContext(ctx context.Context) domain.ReportKind {
	kind, _ := ctx.Value(kindKey{}).(domain.ReportKind)
	return kind
}
