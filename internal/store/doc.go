// Package store defines the domain records and persistence interfaces for the
// ETL pipeline (market data, checkpoints, run history). Implementations live
// in other packages; this package must not import database drivers or
// concrete clients.
package store
