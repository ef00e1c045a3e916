package api

import (
	"mime"
	"net/http"
	"path"

	"github.com/starford/raido/internal/vault"
)

// AssetHandler serves vault binaries under their canonical publish prefix,
// so previewed documents resolve the same /img/user/ URLs the published
// site will.
type AssetHandler struct {
	vault *vault.Vault
}

// NewAssetHandler creates a handler reading assets from the vault.
func NewAssetHandler(v *vault.Vault) *AssetHandler {
	return &AssetHandler{vault: v}
}

// ServeFile handles GET /img/user/*. The wildcard is the vault-relative
// asset path, percent-decoded by docPath.
func (h *AssetHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	rel := docPath(r)
	if rel == "" {
		http.NotFound(w, r)
		return
	}
	data, err := h.vault.ReadBinary(rel)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if ct := mime.TypeByExtension(path.Ext(rel)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
