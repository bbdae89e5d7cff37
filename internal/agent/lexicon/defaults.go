package lexicon

// Default returns the built-in Spanish (Colombia) lexicon for a self-defense equipment store.
func Default() *Lexicon {
	return &Lexicon{
		StopWords:         append([]string(nil), defaultStopWords...),
		Synonyms:          copySynonyms(defaultSynonyms),
		HandoffPhrases:    append([]string(nil), defaultHandoffPhrases...),
		PurchasePhrases:   append([]string(nil), defaultPurchasePhrases...),
		ProductTerms:      append([]string(nil), defaultProductTerms...),
		DeniedSenders:     append([]string(nil), defaultDeniedSenders...),
		AutomatedPatterns: append([]string(nil), defaultAutomatedPatterns...),
	}
}

func copySynonyms(in map[string][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for k, v := range in {
		out[k] = append([]string(nil), v...)
	}
	return out
}

var defaultStopWords = []string{
	// greetings and courtesy
	"hola", "buenas", "buenos", "buen", "dia", "dias", "tarde", "tardes", "noche", "noches",
	"saludos", "gracias", "favor", "porfa", "porfavor", "bendiciones", "hi", "hello", "please",
	// articles, prepositions, conjunctions
	"el", "la", "los", "las", "un", "una", "unos", "unas", "lo", "al", "del", "de", "en", "con",
	"por", "para", "sin", "sobre", "que", "y", "o", "u", "e", "a", "the", "an", "of", "for",
	// pronouns and demonstratives
	"yo", "tu", "usted", "ustedes", "me", "te", "se", "le", "les", "mi", "mis", "tus", "su", "sus",
	"nos", "nosotros", "este", "esta", "estos", "estas", "ese", "esa", "esos", "esas", "eso", "esto",
	"aqui", "alli",
	// question and filler words
	"cuanto", "cuanta", "cuantos", "cuantas", "vale", "valen", "cuesta", "cuestan", "precio", "precios",
	"quiero", "quisiera", "necesito", "busco", "tiene", "tienen", "tienes", "hay", "como", "cual",
	"cuales", "donde", "cuando", "info", "informacion", "interesa", "interesado", "interesada",
	"seria", "puede", "pueden", "podria", "ver", "saber", "algo", "mas", "muy", "si", "no", "ya",
	"pues", "bueno", "ok", "es", "son", "esta", "estan", "is",
}

var defaultSynonyms = map[string][]string{
	"negra":       {"negro"},
	"negro":       {"negra"},
	"blanca":      {"blanco"},
	"blanco":      {"blanca"},
	"plateada":    {"plata", "cromada"},
	"cromada":     {"plata"},
	"retay":       {"retay"},
	"9mm":         {"9x19", "parabellum"},
	"9x19":        {"9mm"},
	"traumatica":  {"traumatico", "fogueo"},
	"fogueo":      {"traumatica"},
	"municion":    {"cartuchos", "balas"},
	"cartuchos":   {"municion"},
	"balas":       {"municion"},
	"tiros":       {"municion"},
	"gas":         {"pimienta"},
	"pimienta":    {"gas"},
	"taser":       {"paralizador", "electrochoque"},
	"paralizador": {"taser"},
	"linterna":    {"lampara"},
	"chaleco":     {"blindaje"},
	"funda":       {"holster", "estuche"},
	"holster":     {"funda"},
}

var defaultHandoffPhrases = []string{
	"hablar con un asesor", "hablar con una asesora", "hablar con una persona", "hablar con alguien",
	"hablar con un humano", "asesor humano", "persona real", "quiero un asesor", "necesito un asesor",
	"comunicarme con un asesor", "pasame con", "atencion humana", "eres un bot", "eres un robot",
	"no eres humano", "no quiero hablar con un bot", "no quiero hablar con una maquina",
	"hablar con el encargado", "hablar con el dueno", "me comunica con", "que me llamen", "llamenme",
}

var defaultPurchasePhrases = []string{
	"lo compro", "la compro", "los compro", "quiero comprar", "quiero comprarlo", "quiero comprarla",
	"me lo llevo", "me la llevo", "como pago", "como puedo pagar", "donde pago", "numero de cuenta",
	"datos para pagar", "datos de pago", "hago el pago", "hacer el pago", "ya pague", "listo para pagar",
	"hacer el pedido", "quiero pedir", "contra entrega", "envienmelo", "medios de pago", "metodos de pago",
	"lo quiero", "la quiero", "apartarlo", "apartarla",
}

var defaultProductTerms = []string{
	"precio", "precios", "valor", "vale", "cuesta", "cuestan", "costo", "catalogo", "modelo", "modelos",
	"referencia", "disponible", "disponibles", "disponibilidad", "stock", "venden", "producto", "productos",
	"pistola", "pistolas", "revolver", "municion", "cartuchos", "gas", "pimienta", "taser", "chaleco",
	"linterna", "accesorios", "envio", "envios", "garantia", "color", "colores", "marca", "marcas", "foto", "fotos",
}

var defaultDeniedSenders = []string{
	"bancolombia", "davivienda", "banco", "nequi", "daviplata", "claro", "movistar", "tigo",
	"servientrega", "interrapidisimo", "coordinadora", "deprisa", "dhl", "fedex", "rappi",
	"chatgpt", "meta ai", "gemini", "chatbot", "asistente virtual", "notificaciones", "noreply", "no-reply",
}

var defaultAutomatedPatterns = []string{
	`codigo (de )?(verificacion|seguridad|acceso|confirmacion)`,
	`\b(otp|pin)\b.{0,20}\d{4,}`,
	`no (responda|responder|respondas|contestes?) (a )?este (mensaje|correo|numero)`,
	`(mensaje|respuesta) automatic[ao]`,
	`(transaccion|transferencia|compra|pago) (aprobada|exitosa|rechazada|realizada)`,
	`(numero de guia|guia|seguimiento)\s*(no\.?\s*)?#?\d{6,}`,
	`tu (pedido|paquete|envio) (ha sido|fue|esta) (enviado|entregado|en camino|despachado)`,
	`(saldo|cupo) disponible`,
	`gracias por comunicarte con`,
	`nuestro horario de atencion es`,
	`verification code`,
	`do not reply`,
}
