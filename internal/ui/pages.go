// Package ui renders the server-side pages of the gateway: the SSO entry
// page, the gate loading page, and the redemption form.
package ui

import (
	. "maragu.dev/gomponents"
	data "maragu.dev/gomponents-datastar"
	. "maragu.dev/gomponents/html"
)

func shell(title string, body ...Node) Node {
	return HTML(
		Lang("pt-BR"),
		Head(
			Meta(Charset("utf-8")),
			Meta(Name("viewport"), Content("width=device-width, initial-scale=1")),
			TitleEl(Text(title+" | Soph")),
			Link(Rel("icon"), Href("data:,")),
			Script(
				Type("module"),
				Src("https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.7/bundles/datastar.js"),
			),
		),
		Body(
			Main(Class("page"), Group(body)),
		),
	)
}

// ssoWelcomePage confirms the SSO handoff and forwards to the chat.
func ssoWelcomePage() Node {
	return shell("Bem-vinda",
		Meta(Attr("http-equiv", "refresh"), Content("1;url=/chat")),
		H1(Text("Acesso validado!")),
		P(Text("Você será redirecionada para a Soph em instantes.")),
		A(Href("/chat"), Text("Ir para o chat agora")),
	)
}

// ssoDeniedPage is shown for an invalid or expired handoff token. The
// redirect to login is delayed so the message is readable.
func ssoDeniedPage() Node {
	return shell("Acesso negado",
		Meta(Attr("http-equiv", "refresh"), Content("3;url=/auth")),
		H1(Text("Não foi possível validar seu acesso")),
		P(Text("O link pode ter expirado. Você será levada à página de login.")),
		A(Href("/auth"), Text("Fazer login")),
	)
}

// gateLoadingPage is rendered while the gate cannot yet settle; it never
// contains protected content.
func gateLoadingPage() Node {
	return shell("Verificando acesso",
		H1(Text("Verificando seu acesso...")),
		P(Text("Serviço temporariamente indisponível. Tente novamente em instantes.")),
		A(Href(""), Attr("onclick", "location.reload();return false"), Text("Tentar novamente")),
	)
}

// redeemPage holds the promo code form, with an optional outcome message
// from a previous attempt.
func redeemPage(message string) Node {
	var feedback Node
	if message != "" {
		feedback = P(Class("feedback"), Text(message))
	}
	return shell("Resgatar código",
		H1(Text("Resgate seu código de acesso")),
		Div(
			data.Signals(map[string]any{"code": ""}),
			Form(
				Method("post"), Action("/resgatar"),
				Label(For("code"), Text("Código")),
				Input(ID("code"), Name("code"), Type("text"), data.Bind("code"),
					AutoComplete("off"), Placeholder("EMPREENDA2026")),
				Button(Type("submit"), data.Show("$code.length > 0"), Text("Resgatar")),
			),
			feedback,
		),
	)
}

// chatPage is the gated chat shell. The conversation itself runs against
// POST /v1/chat.
func chatPage() Node {
	return shell("Chat com a Soph",
		H1(Text("Converse com a Soph")),
		Div(
			data.Signals(map[string]any{"draft": ""}),
			Div(ID("conversation")),
			Form(
				Method("post"), Action("/v1/chat"),
				Input(Name("message"), Type("text"), data.Bind("draft"),
					Placeholder("Pergunte sobre MEI, logo, site ou marketplaces")),
				Button(Type("submit"), data.Show("$draft.length > 0"), Text("Enviar")),
			),
		),
	)
}

// noAccessPage is shown to authenticated users without an entitlement.
func noAccessPage() Node {
	return shell("Sem acesso",
		H1(Text("Você ainda não tem acesso")),
		P(Text("Resgate um código de acesso para liberar as ferramentas do Empreenda Já.")),
		A(Href("/resgatar"), Text("Resgatar código")),
	)
}
