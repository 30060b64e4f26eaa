package handlers

import (
	"context"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"gateway/internal/middleware"
)

// Message keys. The English text doubles as the key.
const (
	msgMailLimit          = "Daily email limit reached"
	msgProfileLimit       = "Daily profile change limit reached"
	msgUserNotFound       = "User not found"
	msgEnforcementFailed  = "Rate limit enforcement failed"
	msgUnknownAction      = "Unknown action"
	msgMissingUser        = "Missing user context"
	msgInvalidPayload     = "Invalid request payload"
	msgNoFile             = "No file uploaded."
	msgFileTooLarge       = "File too large."
	msgUploadFailed       = "Error uploading image."
	msgMissingNameFields  = "Missing uid or newName"
	msgForeignProfile     = "You can only update your own profile"
	msgProfileFailed      = "Failed to update profile name"
	msgProfileUpdated     = "Profile name updated successfully"
	msgMissingFields      = "Missing required fields."
	msgSpam               = "Inappropriate or spammy content detected."
	msgLinks              = "Links are not allowed in messages."
	msgSendFailed         = "Failed to send email."
	msgEmailSent          = "Email sent successfully!"
	msgServiceUnavailable = "Service not configured"
)

var indonesian = map[string]string{
	msgMailLimit:          "Batas email harian telah tercapai",
	msgProfileLimit:       "Batas perubahan profil harian telah tercapai",
	msgUserNotFound:       "Pengguna tidak ditemukan",
	msgEnforcementFailed:  "Gagal memeriksa batas penggunaan",
	msgUnknownAction:      "Aksi tidak dikenal",
	msgMissingUser:        "Konteks pengguna tidak ditemukan",
	msgInvalidPayload:     "Data permintaan tidak valid",
	msgNoFile:             "Tidak ada file yang diunggah.",
	msgFileTooLarge:       "Ukuran file terlalu besar.",
	msgUploadFailed:       "Gagal mengunggah gambar.",
	msgMissingNameFields:  "uid atau newName belum diisi",
	msgForeignProfile:     "Anda hanya dapat mengubah profil Anda sendiri",
	msgProfileFailed:      "Gagal memperbarui nama profil",
	msgProfileUpdated:     "Nama profil berhasil diperbarui",
	msgMissingFields:      "Kolom wajib belum diisi.",
	msgSpam:               "Konten tidak pantas atau spam terdeteksi.",
	msgLinks:              "Tautan tidak diperbolehkan dalam pesan.",
	msgSendFailed:         "Gagal mengirim email.",
	msgEmailSent:          "Email berhasil dikirim!",
	msgServiceUnavailable: "Layanan belum dikonfigurasi",
}

var messages = newCatalog()

func newCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, text := range indonesian {
		_ = b.SetString(language.English, key, key)
		_ = b.SetString(language.Indonesian, key, text)
	}
	return b
}

// translate renders key in the locale negotiated by middleware.I18N.
func translate(ctx context.Context, key string) string {
	tag, err := language.Parse(middleware.LocaleFromContext(ctx))
	if err != nil {
		tag = language.English
	}
	return message.NewPrinter(tag, message.Catalog(messages)).Sprintf(key)
}
