//go:build !cgo

package main

import (
	"errors"

	"github.com/dusk-indust/readcns/internal/graph"
)

func openGraph(string) (graph.Store, error) {
	return nil, errors.New("readcns: --graph-db needs a cgo build (KuzuDB)")
}
