//go:build cgo

package main

import "github.com/dusk-indust/readcns/internal/graph"

func openGraph(path string) (graph.Store, error) {
	return graph.NewKuzuFileStore(path)
}
