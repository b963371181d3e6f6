package orchestrator

import "github.com/yoockh/voicetasks/internal/utils"

type NoticeVariant string

const (
	NoticeDefault     NoticeVariant = "default"
	NoticeDestructive NoticeVariant = "destructive"
)

// Notice is a dismissible, user-facing notification.
type Notice struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Variant     NoticeVariant `json:"variant"`
}

var (
	noticeRecording = Notice{Title: "Grabando", Description: "Habla ahora para agregar tus tareas...", Variant: NoticeDefault}
	noticeStopped   = Notice{Title: "Grabación detenida", Description: "Procesando tu audio...", Variant: NoticeDefault}
	noticeReview    = Notice{Title: "Transcripción completa", Description: "Revisa el texto antes de crear las tareas", Variant: NoticeDefault}
	noticeCreated   = Notice{Title: "Tareas creadas", Description: "Tus tareas han sido agregadas al calendario", Variant: NoticeDefault}
	noticeNoTasks   = Notice{Title: "Sin tareas", Description: "No se encontraron tareas en el texto", Variant: NoticeDefault}
)

// UserMessage is the localized text shown for err. Diagnostic detail stays
// in the logs.
func UserMessage(err error) string {
	switch utils.CodeOf(err) {
	case utils.CodePermissionDenied:
		return "No se pudo acceder al micrófono. Revisa los permisos."
	case utils.CodeInvalidArgument:
		return "No hay audio ni texto para procesar."
	case utils.CodeTranscriptionBackend:
		return "No se pudo transcribir el audio. Inténtalo de nuevo."
	case utils.CodeEmptyTranscription:
		return "No se detectó voz en la grabación."
	case utils.CodeTimeout:
		return "El procesamiento tardó demasiado. Inténtalo de nuevo."
	case utils.CodeExtractionParse:
		return "No se pudieron interpretar las tareas. Inténtalo de nuevo."
	case utils.CodeUnavailable:
		return "El servicio de IA no está disponible en este momento."
	case utils.CodeConfiguration:
		return "El servicio no está configurado correctamente."
	case utils.CodeConflict:
		return "Ya hay una grabación en curso."
	default:
		return "Ocurrió un error inesperado."
	}
}

func errorNotice(err error) Notice {
	return Notice{Title: "Error", Description: UserMessage(err), Variant: NoticeDestructive}
}
