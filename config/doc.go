/*
Package config provides FileWatcher: a polling, debounced file-change
notifier used to drive config hot reload.

# Core type

  - FileWatcher: watches a set of paths on a poll interval, debounces
    rapid successive writes, and dispatches FileEvent callbacks on a
    separate goroutine from the poll loop.

gateway/configsource.FileSource wraps FileWatcher to turn filesystem
change notifications into a reloaded []gatewaytypes.Provider snapshot.
*/
package config
