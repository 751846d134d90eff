package rbac

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// ClearUserPermissionsTx removes every permisos_usuario row for a system
// user. Used when a role change resets the user's effective permissions.
func ClearUserPermissionsTx(ctx context.Context, tx pgx.Tx, usuarioID string) error {
	_, err := tx.Exec(ctx, `DELETE FROM permisos_usuario WHERE usuario_id = $1`, usuarioID)
	return err
}

// SeedUserPermissionsTx copies the active permisos_rol template of rolID
// into permisos_usuario for the given user. Callers run this inside the
// same transaction as the role assignment so a failed reseed rolls the
// assignment back too.
func SeedUserPermissionsTx(ctx context.Context, tx pgx.Tx, usuarioID, rolID, otorgadoPor string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO permisos_usuario (usuario_id, recurso, accion, activo, otorgado_por)
		SELECT $1, recurso, accion, TRUE, $3
		FROM permisos_rol
		WHERE rol_id = $2 AND activo
		ON CONFLICT (usuario_id, recurso, accion)
		DO UPDATE SET activo = TRUE, otorgado_por = EXCLUDED.otorgado_por`,
		usuarioID, rolID, otorgadoPor)
	return err
}
