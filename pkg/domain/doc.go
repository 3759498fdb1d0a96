// Package domain contains the core entities tracked by the porch service:
// pipelines, their tasks, the tokens used to authenticate agents, and the
// event trail recorded for every task change. These types are free of
// infrastructure concerns so they can be shared across packages.
package domain
