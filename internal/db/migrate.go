package db

import "database/sql"

// Migrate creates the schema if it does not exist. Statements are idempotent
// so the server can run them on every start.
func Migrate(db *sql.DB) error {
    stmts := []string{
        `CREATE TABLE IF NOT EXISTS contacts (
            id SERIAL PRIMARY KEY,
            phone TEXT NOT NULL,
            first_name TEXT NOT NULL DEFAULT '',
            last_name TEXT NOT NULL DEFAULT '',
            city TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
        `CREATE INDEX IF NOT EXISTS idx_contacts_phone ON contacts(phone)`,

        `CREATE TABLE IF NOT EXISTS messages (
            id SERIAL PRIMARY KEY,
            phone TEXT NOT NULL,
            body TEXT NOT NULL DEFAULT '',
            direction TEXT NOT NULL DEFAULT 'inbound',
            session_id INTEGER,
            volunteer_name TEXT,
            timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
        `CREATE INDEX IF NOT EXISTS idx_messages_phone ON messages(phone)`,

        `CREATE TABLE IF NOT EXISTS opt_outs (
            id SERIAL PRIMARY KEY,
            phone TEXT NOT NULL UNIQUE,
            opted_out_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,

        `CREATE TABLE IF NOT EXISTS blast_messages (
            id SERIAL PRIMARY KEY,
            phone TEXT NOT NULL,
            rendered_body TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            last_error TEXT NOT NULL DEFAULT '',
            retry_count INTEGER NOT NULL DEFAULT 0,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,

        `CREATE TABLE IF NOT EXISTS activity_log (
            id SERIAL PRIMARY KEY,
            message TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,

        `CREATE TABLE IF NOT EXISTS p2p_sessions (
            id SERIAL PRIMARY KEY,
            name TEXT NOT NULL,
            message_template TEXT NOT NULL,
            assignment_mode TEXT NOT NULL DEFAULT 'auto_split',
            join_code TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'active',
            code_expires_at TIMESTAMPTZ NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
        `CREATE INDEX IF NOT EXISTS idx_p2p_sessions_code ON p2p_sessions(join_code)`,

        `CREATE TABLE IF NOT EXISTS p2p_volunteers (
            id SERIAL PRIMARY KEY,
            session_id INTEGER NOT NULL REFERENCES p2p_sessions(id) ON DELETE CASCADE,
            name TEXT NOT NULL,
            is_online BOOLEAN NOT NULL DEFAULT TRUE,
            joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
        `CREATE INDEX IF NOT EXISTS idx_p2p_vol_session ON p2p_volunteers(session_id)`,

        `CREATE TABLE IF NOT EXISTS p2p_assignments (
            id SERIAL PRIMARY KEY,
            session_id INTEGER NOT NULL REFERENCES p2p_sessions(id) ON DELETE CASCADE,
            volunteer_id INTEGER REFERENCES p2p_volunteers(id),
            contact_id INTEGER NOT NULL REFERENCES contacts(id),
            status TEXT NOT NULL DEFAULT 'pending',
            original_volunteer_id INTEGER,
            assigned_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            sent_at TIMESTAMPTZ,
            completed_at TIMESTAMPTZ
        )`,
        `CREATE INDEX IF NOT EXISTS idx_p2p_assign_vol ON p2p_assignments(volunteer_id)`,
        `CREATE INDEX IF NOT EXISTS idx_p2p_assign_session ON p2p_assignments(session_id)`,
        `CREATE INDEX IF NOT EXISTS idx_p2p_assign_contact ON p2p_assignments(contact_id)`,

        `CREATE TABLE IF NOT EXISTS voters (
            id SERIAL PRIMARY KEY,
            first_name TEXT NOT NULL DEFAULT '',
            last_name TEXT NOT NULL DEFAULT '',
            phone TEXT NOT NULL DEFAULT '',
            email TEXT NOT NULL DEFAULT '',
            address TEXT NOT NULL DEFAULT '',
            city TEXT NOT NULL DEFAULT '',
            zip TEXT NOT NULL DEFAULT '',
            party TEXT NOT NULL DEFAULT '',
            support_level TEXT NOT NULL DEFAULT 'unknown',
            voter_score INTEGER NOT NULL DEFAULT 0,
            tags TEXT NOT NULL DEFAULT '',
            notes TEXT NOT NULL DEFAULT '',
            registration_number TEXT NOT NULL DEFAULT '',
            qr_token TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
        `CREATE INDEX IF NOT EXISTS idx_voters_name ON voters(last_name, first_name)`,
        `CREATE INDEX IF NOT EXISTS idx_voters_phone ON voters(phone)`,
        `CREATE UNIQUE INDEX IF NOT EXISTS idx_voters_qr_token ON voters(qr_token) WHERE qr_token <> ''`,

        `CREATE TABLE IF NOT EXISTS voter_contacts (
            id SERIAL PRIMARY KEY,
            voter_id INTEGER NOT NULL REFERENCES voters(id) ON DELETE CASCADE,
            contact_type TEXT NOT NULL,
            result TEXT NOT NULL DEFAULT '',
            notes TEXT NOT NULL DEFAULT '',
            contacted_by TEXT NOT NULL DEFAULT '',
            contacted_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
        `CREATE INDEX IF NOT EXISTS idx_vc_voter ON voter_contacts(voter_id)`,

        `CREATE TABLE IF NOT EXISTS events (
            id SERIAL PRIMARY KEY,
            title TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            location TEXT NOT NULL DEFAULT '',
            event_date TEXT NOT NULL,
            event_time TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'upcoming',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,

        `CREATE TABLE IF NOT EXISTS event_rsvps (
            id SERIAL PRIMARY KEY,
            event_id INTEGER NOT NULL REFERENCES events(id) ON DELETE CASCADE,
            contact_phone TEXT NOT NULL,
            contact_name TEXT NOT NULL DEFAULT '',
            rsvp_status TEXT NOT NULL DEFAULT 'invited',
            invited_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            responded_at TIMESTAMPTZ,
            checked_in_at TIMESTAMPTZ
        )`,
        `CREATE INDEX IF NOT EXISTS idx_rsvps_event ON event_rsvps(event_id)`,

        `CREATE TABLE IF NOT EXISTS voter_checkins (
            id SERIAL PRIMARY KEY,
            voter_id INTEGER NOT NULL REFERENCES voters(id) ON DELETE CASCADE,
            event_id INTEGER NOT NULL REFERENCES events(id) ON DELETE CASCADE,
            checked_in_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            UNIQUE (voter_id, event_id)
        )`,

        `CREATE TABLE IF NOT EXISTS block_walks (
            id SERIAL PRIMARY KEY,
            name TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            assigned_to TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'pending',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,

        `CREATE TABLE IF NOT EXISTS walk_addresses (
            id SERIAL PRIMARY KEY,
            walk_id INTEGER NOT NULL REFERENCES block_walks(id) ON DELETE CASCADE,
            address TEXT NOT NULL,
            unit TEXT NOT NULL DEFAULT '',
            city TEXT NOT NULL DEFAULT '',
            zip TEXT NOT NULL DEFAULT '',
            voter_name TEXT NOT NULL DEFAULT '',
            voter_id INTEGER REFERENCES voters(id) ON DELETE SET NULL,
            result TEXT NOT NULL DEFAULT 'not_visited',
            notes TEXT NOT NULL DEFAULT '',
            knocked_at TIMESTAMPTZ,
            sort_order INTEGER NOT NULL DEFAULT 0,
            lat DOUBLE PRECISION,
            lng DOUBLE PRECISION,
            gps_lat DOUBLE PRECISION,
            gps_lng DOUBLE PRECISION,
            gps_accuracy DOUBLE PRECISION,
            gps_verified BOOLEAN NOT NULL DEFAULT FALSE
        )`,
        `CREATE INDEX IF NOT EXISTS idx_walk_addr_walk ON walk_addresses(walk_id)`,
    }

    for _, stmt := range stmts {
        if _, err := db.Exec(stmt); err != nil {
            return err
        }
    }
    return nil
}
