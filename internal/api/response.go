package api

import (
	"encoding/json"
	"net/http"
)

// JSON writes data as a JSON body with the given status.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// JSONMessage writes a {"message": ...} body.
func JSONMessage(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"message": message})
}

// JSONError writes the AppError body with its own status.
func JSONError(w http.ResponseWriter, appErr *AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.Status)
	json.NewEncoder(w).Encode(appErr)
}
