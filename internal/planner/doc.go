// Package planner partitions a source into the byte ranges an upload session
// expects, and checks the partition against the session's part count.
package planner
