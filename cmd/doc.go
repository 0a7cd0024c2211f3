// Package cmd implements the mailcore command line interface.
package cmd
