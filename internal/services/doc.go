// Package services holds the error taxonomy shared by pipeline stages and
// the external tool clients underneath them.
package services
