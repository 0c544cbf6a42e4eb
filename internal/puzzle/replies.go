package puzzle

import "fmt"

// User-visible reply templates. The copy is deliberately free of internal
// detail: outcomes map to fixed sentences, never to raw platform errors.

func replyUsage(selectCmd string) string {
	return fmt.Sprintf("ℹ️ Utilisation : `%s <numéro>`.", selectCmd)
}

func replySelectFirst(selectCmd string) string {
	return fmt.Sprintf("ℹ️ Sélectionne d'abord une énigme avec `%s <numéro>`.", selectCmd)
}

func replyUnknownPuzzle(id string) string {
	return fmt.Sprintf("❌ L'énigme %s n'existe pas. Vérifie le numéro et réessaie.", id)
}

func replySelected(id string) string {
	return fmt.Sprintf("🧩 Énigme %s sélectionnée. Envoie ta réponse en MP.", id)
}

const replyWrongAnswer = "❌ Mauvaise réponse, essaie encore !"

func replyAlreadyHeld(roleName string) string {
	return fmt.Sprintf("ℹ️ Tu as déjà le rôle **%s**.", roleName)
}

func replySuccess(displayName, roleName string) string {
	return fmt.Sprintf("✅ Bravo %s, rôle **%s** attribué.", displayName, roleName)
}

func replySuccessSpecial(displayName, roleName string) string {
	return fmt.Sprintf("🎉 Incroyable %s ! Tu as percé le dernier secret, rôle **%s** attribué.", displayName, roleName)
}

const (
	replyForbidden   = "⚠️ Permission insuffisante (Manage Roles / hiérarchie)."
	replyRoleMissing = "⚠️ Rôle introuvable sur le serveur (vérifie l'ID)."
	replyTransient   = "⚠️ Erreur Discord lors de l'attribution du rôle. Réessaie plus tard."
)
