//go:build sqlite_vec && cgo

package store

import (
	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	// Register the sqlite-vec extension with the mattn/go-sqlite3 driver and
	// route every database through it.
	vec.Auto()
	driverName = "sqlite3"
	distanceFunc = "vec_distance_cosine"
}
