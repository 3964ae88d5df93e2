// Package store provides the durable key/value backends the location and
// weather records are persisted to.
package store

// Keys used by the application. Each holds one JSON document.
const (
	KeyLocation = "userLocation"
	KeyWeather  = "weatherData"
)

func namespaced(namespace, key string) string {
	if namespace == "" {
		return key
	}
	return namespace + ":" + key
}
