// Package types defines the catalog entities (Item, Category, Snapshot),
// query and statistics shapes, the KeyValue storage contract, configuration,
// and the standard errors shared by every memeshelf package.
package types
