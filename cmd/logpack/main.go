// Command logpack compacts stored conversation logs: it removes
// windowed duplicates, merges adjacent system messages and rewrites
// each log atomically.
package main

func main() {
	execute()
}
