package services

import "errors"

var (
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrTicketNotFound       = errors.New("ticket not found")
	ErrInvalidStatus        = errors.New("invalid registration status")
	ErrUnitNotFound         = errors.New("unit not found")
	ErrInfoNotFound         = errors.New("info not found")
	ErrSettingNotFound      = errors.New("unit setting not found")
)

// Messages shown to callers. Internal causes are only logged.
const (
	MsgSubmitFailed           = "Gagal memproses pendaftaran. Silakan coba lagi."
	MsgStatusUpdateFailed     = "Gagal memperbarui status"
	MsgRegistrationNotFound   = "Pendaftaran tidak ditemukan"
	MsgTicketNotFound         = "Tiket tidak ditemukan"
	MsgInvalidStatus          = "Status tidak valid"
	MsgCheckInFailed          = "Gagal memproses check-in"
	MsgNoItems                = "Tidak ada item pendaftaran"
	MsgUnknownUnits           = "Unit yang dipilih tidak tersedia"
	MsgCapacityFull           = "Maaf, kuota untuk kategori %s sudah penuh."
	MsgCapacityPartial        = "Maaf, sisa tiket untuk kategori %s hanya tinggal %d."
	MsgCapacityClosed         = "Pendaftaran untuk kategori %s belum dibuka atau sudah ditutup."
	MsgQuantityTooLarge       = "Jumlah tiket untuk kategori %s maksimal %d per pendaftaran."
	MsgTicketQuantityTooLarge = "Jumlah tiket melebihi batas %d per pendaftaran."
	MsgResendNotVerified      = "Tiket hanya dapat dikirim untuk pendaftaran yang sudah diverifikasi"
)
