package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Create flow_versions table
			CREATE TABLE flow_versions (
				id UUID PRIMARY KEY,
				flow_id VARCHAR(255) NOT NULL,
				display_name VARCHAR(255) NOT NULL,
				schema_version VARCHAR(32) NOT NULL DEFAULT '',
				state VARCHAR(50) NOT NULL CHECK (state IN ('DRAFT', 'LOCKED')),
				trigger_step JSONB NOT NULL,
				connection_ids TEXT[] NOT NULL DEFAULT '{}',
				agent_ids TEXT[] NOT NULL DEFAULT '{}',
				notes JSONB NOT NULL DEFAULT '[]',
				valid BOOLEAN NOT NULL DEFAULT false,
				updated_by VARCHAR(255),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_flow_versions_flow_id ON flow_versions(flow_id);
			CREATE INDEX idx_flow_versions_schema_version ON flow_versions(schema_version);
			CREATE INDEX idx_flow_versions_deleted_at ON flow_versions(deleted_at);
		`,
		2: `
			-- Migration 2: table fields resolved by the external id migration
			CREATE TABLE table_fields (
				id BIGINT PRIMARY KEY,
				external_id VARCHAR(255) NOT NULL UNIQUE,
				table_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_table_fields_table_id ON table_fields(table_id);
		`,
	}
}
