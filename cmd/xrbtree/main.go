// Package main provides the xrbtree CLI entry point.
package main

import (
	"os"
)

func main() {
	a := newApp()
	if err := a.root.Execute(); err != nil {
		a.logger().Error(err, "[xrbtree] command failed")
		_ = a.logger().Sync()
		os.Exit(1)
	}
}
