// Package services holds the error taxonomy shared by the conversion
// pipeline and the external-service clients it drives.
package services
